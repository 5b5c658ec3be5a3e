package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/team-leekim/newsnack-ai/internal/api"
	"github.com/team-leekim/newsnack-ai/internal/articlegen"
	"github.com/team-leekim/newsnack-ai/internal/breaker"
	"github.com/team-leekim/newsnack-ai/internal/briefing"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/objstore"
	"github.com/team-leekim/newsnack-ai/internal/providers/factory"
	"github.com/team-leekim/newsnack-ai/internal/research"
	"github.com/team-leekim/newsnack-ai/internal/store"
	"github.com/team-leekim/newsnack-ai/internal/workflow"
)

// buildServices assembles the generation pipelines, the workflow service, and
// the HTTP API from configuration. The provider set is memoized, so the
// article and briefing pipelines share one backend client.
func buildServices(cfg *config.Config, st *store.Store, logger *slog.Logger) (*workflow.Service, *api.Server, error) {
	provider, err := factory.NewSet(cfg.Provider, cfg.Briefing).Active()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve provider: %w", err)
	}

	objects, err := objstore.New(context.Background(), cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("init object storage: %w", err)
	}

	genOpts := []articlegen.Option{
		articlegen.WithLogger(logging.NewComponentLogger(logger, "articlegen")),
	}
	apiOpts := []api.Option{
		api.WithLogger(logging.NewComponentLogger(logger, "api")),
	}
	if cfg.Breaker.RedisAddr != "" {
		client := breaker.NewClient(cfg.Breaker)
		circuit := breaker.New(client, "image_generation", cfg.Breaker,
			breaker.WithLogger(logging.NewComponentLogger(logger, "breaker")))
		genOpts = append(genOpts, articlegen.WithBreaker(circuit))
		apiOpts = append(apiOpts, api.WithRedisPing(client))
	}
	if cfg.Research.Enabled {
		agent := research.NewAgent(provider, cfg.Research, logging.NewComponentLogger(logger, "research"))
		genOpts = append(genOpts, articlegen.WithResearchAgent(agent))
	}

	generator, err := articlegen.New(cfg, st, provider, objects, genOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("build article pipeline: %w", err)
	}

	briefer, err := briefing.New(cfg, st, provider, objects,
		briefing.WithLogger(logging.NewComponentLogger(logger, "briefing")))
	if err != nil {
		return nil, nil, fmt.Errorf("build briefing pipeline: %w", err)
	}

	service := workflow.New(cfg, st, generator, briefer,
		workflow.WithLogger(logging.NewComponentLogger(logger, "workflow")))
	server := api.New(cfg, st, service, apiOpts...)
	return service, server, nil
}
