// Package factory wires the concrete provider backends into a memoizing
// set. It lives apart from the providers package so capability interfaces
// never import wire-format code.
package factory

import (
	"fmt"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/providers/gemini"
	"github.com/team-leekim/newsnack-ai/internal/providers/openai"
)

// NewSet builds a provider set backed by the real HTTP clients.
func NewSet(cfg config.Provider, briefing config.Briefing) *providers.Set {
	return providers.NewSet(cfg, briefing, Build)
}

// Build constructs the backend selected by cfg.Name.
func Build(cfg config.Provider, sampleRate int) (providers.Provider, error) {
	switch cfg.Name {
	case "google":
		return gemini.NewClient(cfg.Google, sampleRate), nil
	case "openai":
		return openai.NewClient(cfg.OpenAI, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}
