package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prismis/prismis/internal/apperr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validAnthropicConfig = `
[daemon]
fetch_interval = "30m"
max_items_rss = 50
max_items_reddit = 50
max_items_youtube = 10
max_days_lookback = 30

[llm]
provider = "anthropic"
model = "claude-3-5-sonnet-20241022"
api_key = "sk-ant-test"

[api]
key = "test-key"
host = "127.0.0.1"
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validAnthropicConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected valid config to load, got %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.API.Key != "test-key" {
		t.Fatalf("unexpected decoded config: %+v", cfg)
	}
	if cfg.Daemon.MaxItemsRSS != 50 {
		t.Fatalf("expected max_items_rss=50, got %d", cfg.Daemon.MaxItemsRSS)
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected a config-kind error for a missing file, got %v", err)
	}
}

func TestLoadOllamaWithoutAPIBaseFails(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "ollama"
model = "llama3"

[api]
key = "test-key"
host = "127.0.0.1"
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected ollama without api_base to fail validation, got %v", err)
	}
}

func TestLoadInvalidProviderFails(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "not-a-real-provider"
model = "whatever"

[api]
key = "test-key"
host = "127.0.0.1"
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected unsupported provider to fail validation, got %v", err)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "anthropic"
model = "claude-3-5-sonnet-20241022"
api_key = "sk-ant-test"

[api]
host = "127.0.0.1"
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected missing api.key to fail validation, got %v", err)
	}
}

func TestLoadResolvesEnvIndirection(t *testing.T) {
	t.Setenv("PRISMIS_TEST_API_KEY", "resolved-secret")
	path := writeConfig(t, `
[llm]
provider = "anthropic"
model = "claude-3-5-sonnet-20241022"
api_key = "env:PRISMIS_TEST_API_KEY"

[api]
key = "test-key"
host = "127.0.0.1"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected env indirection to resolve, got %v", err)
	}
	if cfg.LLM.APIKey != "resolved-secret" {
		t.Fatalf("expected resolved api_key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadUnresolvableEnvIndirectionFails(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "anthropic"
model = "claude-3-5-sonnet-20241022"
api_key = "env:PRISMIS_DOES_NOT_EXIST_ANYWHERE"

[api]
key = "test-key"
host = "127.0.0.1"
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected unresolvable env indirection to fail, got %v", err)
	}
}

func TestLoadMaxDaysLookbackOutOfRangeFails(t *testing.T) {
	path := writeConfig(t, `
[daemon]
max_days_lookback = 400

[llm]
provider = "anthropic"
model = "claude-3-5-sonnet-20241022"
api_key = "sk-ant-test"

[api]
key = "test-key"
host = "127.0.0.1"
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected max_days_lookback=400 (>365) to fail validation, got %v", err)
	}
}
