package providers

import (
	"fmt"
	"sync"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// Factory builds a Provider for the given configuration. The default wires
// the real backends; tests substitute stubs.
type Factory func(cfg config.Provider, sampleRate int) (Provider, error)

// Set memoizes provider construction so every pipeline in a process shares
// one client per backend.
type Set struct {
	cfg        config.Provider
	sampleRate int
	factory    Factory

	mu       sync.Mutex
	provider Provider
}

// NewSet creates a provider set for the configured backend. factory may be
// nil, in which case the caller must install one with SetFactory before the
// first Active call; the cmd layer wires the real backends there to keep
// this package free of wire-format imports.
func NewSet(cfg config.Provider, briefing config.Briefing, factory Factory) *Set {
	return &Set{
		cfg:        cfg,
		sampleRate: briefing.SampleRate,
		factory:    factory,
	}
}

// Active returns the memoized provider for the configured backend name.
func (s *Set) Active() (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider != nil {
		return s.provider, nil
	}
	if s.factory == nil {
		return nil, fmt.Errorf("provider factory not installed")
	}
	provider, err := s.factory(s.cfg, s.sampleRate)
	if err != nil {
		return nil, err
	}
	s.provider = provider
	return s.provider, nil
}
