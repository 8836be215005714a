package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/prismis/prismis/internal/apperr"
)

// validateOnce/validatorInst hold the singleton validator instance:
// struct-tag based validation, constructed once and reused.
var (
	validateOnce  sync.Once
	validatorInst *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInst
}

// Validate checks every required field via struct tags. Cross-field rules
// such as ollama's api_base requirement are tag-expressible and live on
// the fields themselves; there is no separate cross-field pass.
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.New(apperr.KindConfig, translateFieldError(fieldErrs[0]))
		}
		return apperr.Wrap(apperr.KindConfig, "validate config", err)
	}
	return nil
}

// translateFieldError renders a single validator.FieldError into a plain
// "<field> <reason>" message for the config load failure.
func translateFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required for the selected provider", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
