// Package config loads stockwise settings from defaults, the JSON config
// file, STOCKWISE_* environment variables and the secrets file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Polisher providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderNone       = "none"
)

// Alert delivery modes.
const (
	NotifyDirect = "direct"
	NotifyQueue  = "queue"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Polish    PolishConfig
	Proxy     ProxyConfig
	Ollama    OllamaConfig
	Notifier  NotifierConfig
	Catalog   CatalogConfig
	Analytics AnalyticsConfig
	Intent    IntentConfig
	API       APIConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type PolishConfig struct {
	Provider      string
	Model         string
	FallbackModel string
	Timeout       string
}

type ProxyConfig struct {
	OpenRouterAPIKey string
}

type OllamaConfig struct {
	BaseURL string
}

type NotifierConfig struct {
	WebhookURL string
	Origin     string
	Timeout    string
	Mode       string
}

type CatalogConfig struct {
	MinTermLength int
}

type AnalyticsConfig struct {
	PeriodDays int
}

type IntentConfig struct {
	// VocabularyFile overrides the embedded keyword vocabulary when set.
	VocabularyFile string
}

type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4100},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		Polish: PolishConfig{
			Provider:      ProviderOpenRouter,
			Model:         "openai/gpt-4o-mini",
			FallbackModel: "mistralai/mistral-small",
			Timeout:       "8s",
		},
		Ollama: OllamaConfig{BaseURL: "http://localhost:11434"},
		Notifier: NotifierConfig{
			Origin:  "stockwise",
			Timeout: "5s",
			Mode:    NotifyDirect,
		},
		Catalog:   CatalogConfig{MinTermLength: 2},
		Analytics: AnalyticsConfig{PeriodDays: 30},
	}
}

// Load reads configuration from the JSON config file, environment
// variables and the secrets file. A missing OpenRouter key is not an
// error: answers are then returned unpolished.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()), fileSecrets{path: SecretsFilePath()})
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Polish.Provider {
	case ProviderOpenRouter, ProviderOllama, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("polish.provider must be openrouter, ollama or none, got %q", c.Polish.Provider))
	}
	switch c.Notifier.Mode {
	case NotifyDirect, NotifyQueue:
	default:
		errs = append(errs, fmt.Errorf("notifier.mode must be direct or queue, got %q", c.Notifier.Mode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := time.ParseDuration(c.Polish.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("polish.timeout: %w", err))
	}
	if _, err := time.ParseDuration(c.Notifier.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("notifier.timeout: %w", err))
	}
	return errors.Join(errs...)
}

// PolishTimeout returns polish.timeout, or 8s if unparsable.
func (c Config) PolishTimeout() time.Duration {
	return durationOr(c.Polish.Timeout, 8*time.Second)
}

// NotifierTimeout returns notifier.timeout, or 5s if unparsable.
func (c Config) NotifierTimeout() time.Duration {
	return durationOr(c.Notifier.Timeout, 5*time.Second)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// EnsureAPIToken returns the admin API bearer token, generating and
// persisting one on first use.
func EnsureAPIToken(cfg *Config) (string, error) {
	return ensureAPIToken(cfg, fileSecrets{path: SecretsFilePath()})
}

func ensureAPIToken(cfg *Config, secrets secretStore) (string, error) {
	if cfg.API.Token != "" {
		return cfg.API.Token, nil
	}
	token := uuid.New().String()
	if err := secrets.Set(apiTokenAccount, token); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	cfg.API.Token = token
	return token, nil
}
