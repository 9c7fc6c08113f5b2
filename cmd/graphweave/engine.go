package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/driver"
	"github.com/graphweave/graphweave/pkg/llm"
	"github.com/graphweave/graphweave/pkg/store"
)

// buildEngine wires the knowledge store, graph driver and LLM client from
// configuration. The returned cleanup closes everything that was opened.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*graphweave.Client, func(), error) {
	knowledgeStore, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	graphDriver, err := buildDriver(cfg)
	if err != nil {
		knowledgeStore.Close()
		return nil, nil, err
	}

	llmClient := buildLLM(cfg, logger)

	engine, err := graphweave.NewClient(knowledgeStore, graphDriver, llmClient, nil, logger)
	if err != nil {
		knowledgeStore.Close()
		graphDriver.Close(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		if llmClient != nil {
			llmClient.Close()
		}
		graphDriver.Close(context.Background())
		knowledgeStore.Close()
	}
	return engine, cleanup, nil
}

func buildStore(cfg *config.Config) (store.KnowledgeStore, error) {
	switch cfg.Store.Backend {
	case "", "badger":
		return store.NewBadgerStore(cfg.Store.Path)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func buildDriver(cfg *config.Config) (driver.GraphDriver, error) {
	switch cfg.Graph.Driver {
	case "neo4j":
		return driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
	case "", "none":
		return driver.NewNoopDriver(), nil
	default:
		return nil, fmt.Errorf("unknown graph driver: %s", cfg.Graph.Driver)
	}
}

// buildLLM returns nil when no provider is configured or no API key is set;
// the engine then runs with rule-based extraction only.
func buildLLM(cfg *config.Config, logger *slog.Logger) llm.Client {
	llmCfg := &llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	var client llm.Client
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			logger.Warn("no OpenAI API key configured, falling back to rule-based extraction")
			return nil
		}
		client = llm.NewOpenAIClient(llmCfg)
	case "anthropic":
		if cfg.LLM.APIKey == "" {
			logger.Warn("no Anthropic API key configured, falling back to rule-based extraction")
			return nil
		}
		client = llm.NewAnthropicClient(llmCfg)
	case "", "none":
		return nil
	default:
		logger.Warn("unknown LLM provider, falling back to rule-based extraction", "provider", cfg.LLM.Provider)
		return nil
	}

	if cfg.CircuitBreaker.Enabled {
		breakerCfg := llm.BreakerConfig{
			Enabled:          true,
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			IntervalSeconds:  cfg.CircuitBreaker.Interval,
			TimeoutSeconds:   cfg.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}
		client = llm.NewCircuitBreakerClient(client, breakerCfg, logger)
	}
	return client
}
