// Package workflow coordinates pipeline execution: claiming work items,
// admission-gated background article runs, briefing runs, and the
// research debug entry point.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/team-leekim/newsnack-ai/internal/articlegen"
	"github.com/team-leekim/newsnack-ai/internal/briefing"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/store"
)

// ErrNotFound reports a work item that does not exist. Callers map it
// to a not-found response, distinct from a run failure.
var ErrNotFound = errors.New("work item not found")

// Service runs generation pipelines against the queue.
type Service struct {
	store     *store.Store
	generator *articlegen.Generator
	briefer   *briefing.Builder

	// gate bounds concurrently executing article runs; stagger paces
	// upstream calls after each slot is acquired.
	gate    *semaphore.Weighted
	stagger time.Duration

	logger *slog.Logger
	runs   sync.WaitGroup
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithLogger attaches a logger for batch and run events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the workflow service.
func New(cfg *config.Config, st *store.Store, generator *articlegen.Generator, briefer *briefing.Builder, opts ...Option) *Service {
	s := &Service{
		store:     st,
		generator: generator,
		briefer:   briefer,
		gate:      semaphore.NewWeighted(int64(cfg.Workflow.MaxConcurrentGenerations)),
		stagger:   time.Duration(cfg.Workflow.GenerationDelaySeconds) * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "workflow")
	return s
}

// ClaimAndRunBatch claims the eligible subset of candidateIDs and
// starts one background article run per claimed item. It returns the
// claimed identifiers immediately; an empty result means nothing was
// eligible, which is not an error.
func (s *Service) ClaimAndRunBatch(ctx context.Context, candidateIDs []int64) ([]int64, error) {
	claimed, err := s.store.Claim(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	if len(claimed) == 0 {
		s.logger.Info("nothing to process", logging.Int("candidates", len(candidateIDs)))
		return nil, nil
	}

	s.logger.Info("claimed batch",
		logging.Int("candidates", len(candidateIDs)),
		logging.Int("claimed", len(claimed)))

	// Runs outlive the triggering request.
	runCtx := context.WithoutCancel(ctx)
	for _, id := range claimed {
		s.runs.Add(1)
		go s.runArticle(runCtx, id)
	}
	return claimed, nil
}

func (s *Service) runArticle(ctx context.Context, id int64) {
	defer s.runs.Done()

	if err := s.gate.Acquire(ctx, 1); err != nil {
		s.failItem(ctx, id, fmt.Errorf("admission gate: %w", err))
		return
	}
	defer s.gate.Release(1)
	time.Sleep(s.stagger)

	item, err := s.store.GetWorkItem(ctx, id)
	if err != nil {
		s.failItem(ctx, id, fmt.Errorf("load work item: %w", err))
		return
	}
	if item == nil {
		s.failItem(ctx, id, fmt.Errorf("work item %d disappeared after claim", id))
		return
	}

	s.logger.Info("starting article run", logging.Int64(logging.FieldItemID, id))
	if _, err := s.generator.Run(ctx, item); err != nil {
		s.failItem(ctx, id, err)
		return
	}
	s.logger.Info("article run finished", logging.Int64(logging.FieldItemID, id))
}

// failItem records the failure in its own transaction so the item
// becomes re-claimable.
func (s *Service) failItem(ctx context.Context, id int64, runErr error) {
	s.logger.Error("article run failed",
		logging.Int64(logging.FieldItemID, id),
		logging.Error(runErr))
	if err := s.store.MarkFailed(ctx, id, runErr.Error()); err != nil {
		s.logger.Error("marking work item failed did not stick",
			logging.Int64(logging.FieldItemID, id),
			logging.Error(err))
	}
}

// RunBriefing builds one audio briefing for the target work items.
// Failures do not touch any work-item status.
func (s *Service) RunBriefing(ctx context.Context, targetIDs []int64) (*store.Briefing, error) {
	result, err := s.briefer.Run(ctx, targetIDs)
	if err != nil {
		s.logger.Error("briefing run failed", logging.Error(err))
		return nil, err
	}
	return result, nil
}

// DebugResearch runs only the analysis and research nodes for one work
// item and returns the intermediate state without persisting anything.
func (s *Service) DebugResearch(ctx context.Context, id int64, validate bool) (*articlegen.State, error) {
	item, err := s.store.GetWorkItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.generator.Debug(ctx, item, validate)
}

// Wait blocks until every background article run has finished. Used on
// shutdown and by tests.
func (s *Service) Wait() {
	s.runs.Wait()
}
