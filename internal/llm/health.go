package llm

import (
	"context"
	"time"

	"github.com/prismis/prismis/internal/apperr"
)

// healthTimeout bounds the startup health probe.
const healthTimeout = 60 * time.Second

// ValidateStartup issues a health call against the configured provider and
// model before the scheduler starts. Failure is fatal: the caller should
// abort the process with this error's message.
func ValidateStartup(ctx context.Context, p Provider) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := p.HealthCheck(ctx); err != nil {
		return apperr.Wrap(apperr.KindConfig, "llm provider health check failed", err)
	}
	return nil
}
