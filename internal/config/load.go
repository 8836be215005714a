package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	kenv "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/prismis/prismis/internal/apperr"
)

// ConfigPathEnvVar overrides the default XDG-derived config path.
const ConfigPathEnvVar = "PRISMIS_CONFIG_PATH"

// DefaultPath returns $XDG_CONFIG_HOME/prismis/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "prismis", "config.toml")
}

// Load reads the TOML config file at path (DefaultPath() if empty), layers
// it over Default(), resolves `env:VARNAME` indirections, and validates the
// result. Any failure is a *apperr.Error of KindConfig - fatal at startup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
		if override := os.Getenv(ConfigPathEnvVar); override != "" {
			path = override
		}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, fmt.Sprintf("load config file %s", path), err)
	}
	if err := k.Load(kenv.Provider("PRISMIS_", ".", envKeyMap), nil); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "load environment overrides", err)
	}

	// Seed from Default() so keys absent from both the file and the
	// environment keep their built-in value; koanf's mapstructure-backed
	// Unmarshal only overwrites fields present in the loaded maps.
	cfg := *Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "unmarshal config", err)
	}
	if err := resolveEnvIndirection(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyMap translates PRISMIS_LLM_API_KEY -> llm.api_key for the koanf
// env provider.
func envKeyMap(s string) string {
	s = strings.TrimPrefix(s, "PRISMIS_")
	return strings.ToLower(strings.Replace(s, "_", ".", 1))
}

// resolveEnvIndirection walks the string fields that accept `env:VARNAME`
// indirection (the API key, the LLM credentials and the forum client
// secret) and substitutes
// the named environment variable's value. An unresolvable reference is a
// config error.
func resolveEnvIndirection(cfg *Config) error {
	resolve := func(field *string) error {
		if !strings.HasPrefix(*field, "env:") {
			return nil
		}
		name := strings.TrimPrefix(*field, "env:")
		val, ok := os.LookupEnv(name)
		if !ok {
			return apperr.New(apperr.KindConfig, fmt.Sprintf("env indirection %q: %s is not set", *field, name))
		}
		*field = val
		return nil
	}
	for _, f := range []*string{&cfg.LLM.APIKey, &cfg.LLM.APIBase, &cfg.API.Key, &cfg.Reddit.ClientSecret} {
		if err := resolve(f); err != nil {
			return err
		}
	}
	return nil
}
