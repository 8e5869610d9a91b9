package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/stockwise/internal/alert"
	"github.com/kalambet/stockwise/internal/analytics"
	"github.com/kalambet/stockwise/internal/config"
	"github.com/kalambet/stockwise/internal/intent"
	"github.com/kalambet/stockwise/internal/inventory"
	"github.com/kalambet/stockwise/internal/ollama"
	"github.com/kalambet/stockwise/internal/pipeline"
	"github.com/kalambet/stockwise/internal/polish"
	"github.com/kalambet/stockwise/internal/proxy"
	"github.com/kalambet/stockwise/internal/storage"
)

func newPolisher(cfg config.Config) polish.Polisher {
	switch cfg.Polish.Provider {
	case config.ProviderOpenRouter:
		if cfg.Proxy.OpenRouterAPIKey == "" {
			slog.Warn("no OpenRouter API key configured, answers will not be polished")
			return polish.Passthrough{}
		}
		backend := polish.OpenRouter{Client: proxy.NewClient(cfg.Proxy.OpenRouterAPIKey)}
		return polish.NewClient(backend, cfg.Polish.Model, cfg.Polish.FallbackModel, cfg.PolishTimeout())
	case config.ProviderOllama:
		backend := polish.Ollama{Client: ollama.New(cfg.Ollama.BaseURL)}
		return polish.NewClient(backend, cfg.Polish.Model, cfg.Polish.FallbackModel, cfg.PolishTimeout())
	default:
		return polish.Passthrough{}
	}
}

// newDispatcher returns the alert dispatcher and, in queue mode, the worker
// that must run alongside it. Without a webhook URL alerts are only logged.
func newDispatcher(cfg config.Config, store *storage.Store) (alert.Dispatcher, *alert.Worker) {
	notifier := alert.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.NotifierTimeout())
	if cfg.Notifier.WebhookURL == "" {
		slog.Warn("no notifier webhook configured, low-stock alerts will be recorded as failed")
	}
	if cfg.Notifier.Mode == config.NotifyQueue {
		return alert.NewQueueDispatcher(store, 0), alert.NewWorker(store, notifier, 0)
	}
	return alert.NewDirectDispatcher(notifier, store), nil
}

// buildRouter wires the classifier, both handlers and the alert dispatcher
// over store. The caller must Close the router and run the worker if one
// is returned.
func buildRouter(cfg config.Config, store *storage.Store) (*pipeline.Router, *alert.Worker, error) {
	vocab, err := intent.LoadVocabulary(cfg.Intent.VocabularyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	polisher := newPolisher(cfg)
	inv := inventory.NewHandler(store, polisher,
		inventory.WithPhrases(vocab.Inventory),
		inventory.WithMinTermLength(cfg.Catalog.MinTermLength),
	)
	an := analytics.NewHandler(store, polisher, &vocab.Analytics, cfg.Analytics.PeriodDays)

	dispatcher, worker := newDispatcher(cfg, store)
	router := pipeline.NewRouter(intent.NewClassifier(vocab), inv, an,
		pipeline.WithDispatcher(dispatcher, cfg.Notifier.Origin),
		pipeline.WithAlertTimeout(2*cfg.NotifierTimeout()),
	)
	return router, worker, nil
}

// checkOllama warns when the local polisher backend or its model is
// missing. Answers still go out unpolished in that case.
func checkOllama(ctx context.Context, cfg config.Config) {
	if cfg.Polish.Provider != config.ProviderOllama {
		return
	}
	client := ollama.New(cfg.Ollama.BaseURL)
	if !client.IsRunning(ctx) {
		slog.Warn("ollama is not reachable, answers will not be polished", "base_url", cfg.Ollama.BaseURL)
		return
	}
	for _, model := range []string{cfg.Polish.Model, cfg.Polish.FallbackModel} {
		if model != "" && !client.HasModel(ctx, model) {
			slog.Warn("ollama model not pulled", "model", model, "hint", "ollama pull "+model)
		}
	}
}
