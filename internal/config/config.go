// Package config loads and validates Prismis's TOML configuration file
// (the user-context document is loaded by internal/llm). Loading is layered: defaults,
// then the file, then environment overrides, with a final validation pass
// that aborts startup on any missing or malformed field.
package config

import "time"

// Config is the fully decoded, validated configuration for prismisd.
type Config struct {
	Daemon        DaemonConfig        `koanf:"daemon"`
	LLM           LLMConfig           `koanf:"llm"`
	Reddit        RedditConfig        `koanf:"reddit-like"`
	Notifications NotificationsConfig `koanf:"notifications"`
	API           APIConfig           `koanf:"api"`
	Archival      ArchivalConfig      `koanf:"archival"`
}

// DaemonConfig controls pipeline pacing and per-kind fetch limits.
type DaemonConfig struct {
	FetchInterval   time.Duration `koanf:"fetch_interval" validate:"min=0"`
	MaxItemsRSS     int           `koanf:"max_items_rss"`
	MaxItemsReddit  int           `koanf:"max_items_reddit"`
	MaxItemsYouTube int           `koanf:"max_items_youtube"`
	MaxDaysLookback int           `koanf:"max_days_lookback" validate:"min=1,max=365"`
}

// LLMConfig selects the provider and model used for summarization,
// evaluation, and embedding.
type LLMConfig struct {
	Provider string `koanf:"provider" validate:"oneof=anthropic openai ollama"`
	Model    string `koanf:"model" validate:"required"`
	APIKey   string `koanf:"api_key"`
	APIBase  string `koanf:"api_base" validate:"required_if=Provider ollama"`
}

// RedditConfig holds optional credentials for the forum fetcher's
// authenticated API path. When empty, the fetcher falls back to the
// unauthenticated .json listing endpoint.
type RedditConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	UserAgent    string `koanf:"user_agent"`
}

// NotificationsConfig controls the external desktop-notification command.
type NotificationsConfig struct {
	HighPriorityOnly bool   `koanf:"high_priority_only"`
	Command          string `koanf:"command"`
}

// APIConfig controls the REST server's auth and binding.
type APIConfig struct {
	Key  string `koanf:"key" validate:"required"`
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port"`
}

// ArchivalConfig holds the per-priority aging windows, in days. A nil
// pointer means "never archive this tier" (only meaningful for HighRead).
type ArchivalConfig struct {
	Enabled      bool `koanf:"enabled"`
	HighRead     *int `koanf:"high_read"`
	MediumUnread *int `koanf:"medium_unread"`
	MediumRead   *int `koanf:"medium_read"`
	LowUnread    *int `koanf:"low_unread"`
	LowRead      *int `koanf:"low_read"`
}

// Default returns a Config populated with the defaults applied before the
// file and environment layers.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			FetchInterval:   30 * time.Minute,
			MaxItemsRSS:     50,
			MaxItemsReddit:  50,
			MaxItemsYouTube: 10,
			MaxDaysLookback: 30,
		},
		Notifications: NotificationsConfig{
			HighPriorityOnly: true,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8989,
		},
		Archival: ArchivalConfig{
			Enabled: true,
		},
	}
}
