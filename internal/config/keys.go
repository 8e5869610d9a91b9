package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

const apiTokenAccount = "api_token"

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secrets.json account for secret keys
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "STOCKWISE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "STOCKWISE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "STOCKWISE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "polish.provider", typ: kString, env: "STOCKWISE_POLISH_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Polish.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Polish.Provider },
	},
	{
		key: "polish.model", typ: kString, env: "STOCKWISE_POLISH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Polish.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Polish.Model },
	},
	{
		key: "polish.fallback_model", typ: kString, env: "STOCKWISE_POLISH_FALLBACK_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Polish.FallbackModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Polish.FallbackModel },
	},
	{
		key: "polish.timeout", typ: kString, env: "STOCKWISE_POLISH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Polish.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Polish.Timeout },
	},
	{
		key: "proxy.openrouter_api_key", typ: kString, env: "STOCKWISE_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.Proxy.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.OpenRouterAPIKey },
	},
	{
		key: "ollama.base_url", typ: kString, env: "STOCKWISE_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "notifier.webhook_url", typ: kString, env: "STOCKWISE_NOTIFIER_WEBHOOK_URL",
		apply:   func(cfg *Config, v any) { cfg.Notifier.WebhookURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Notifier.WebhookURL },
	},
	{
		key: "notifier.origin", typ: kString, env: "STOCKWISE_NOTIFIER_ORIGIN",
		apply:   func(cfg *Config, v any) { cfg.Notifier.Origin = v.(string) },
		extract: func(cfg Config) any { return cfg.Notifier.Origin },
	},
	{
		key: "notifier.timeout", typ: kString, env: "STOCKWISE_NOTIFIER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Notifier.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Notifier.Timeout },
	},
	{
		key: "notifier.mode", typ: kString, env: "STOCKWISE_NOTIFIER_MODE",
		apply:   func(cfg *Config, v any) { cfg.Notifier.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Notifier.Mode },
	},
	{
		key: "catalog.min_term_length", typ: kInt, env: "STOCKWISE_CATALOG_MIN_TERM_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Catalog.MinTermLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.MinTermLength },
	},
	{
		key: "analytics.period_days", typ: kInt, env: "STOCKWISE_ANALYTICS_PERIOD_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Analytics.PeriodDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Analytics.PeriodDays },
	},
	{
		key: "intent.vocabulary_file", typ: kString, env: "STOCKWISE_INTENT_VOCABULARY_FILE",
		apply:   func(cfg *Config, v any) { cfg.Intent.VocabularyFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Intent.VocabularyFile },
	},
	{
		key: "api.token", typ: kString, env: "STOCKWISE_API_TOKEN",
		secret: true, account: apiTokenAccount,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

// applySecrets fills secret keys the environment left empty.
func applySecrets(cfg *Config, secrets secretStore) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg).(string) != "" {
			continue
		}
		v, err := secrets.Get(s.account)
		if err != nil {
			if !errors.Is(err, errSecretNotFound) {
				fmt.Fprintf(os.Stderr, "[WARN] could not read secret %s: %v\n", s.key, err)
			}
			continue
		}
		s.apply(cfg, v)
	}
}
