package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Provider.Google.APIKey = "test"
	cfgVal.Storage.Backend = "fs"
	cfgVal.Storage.LocalDir = filepath.Join(base, "media")
	cfgVal.Workflow.GenerationDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProvider switches the active generation backend on the test config.
func WithProvider(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.Name = name
		if name == "openai" {
			b.cfg.Provider.OpenAI.APIKey = "test"
		}
	}
}

// WithMaxConcurrent overrides the admission-gate width on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxConcurrentGenerations = n
	}
}

// WithBreakerRedis points the breaker at an explicit redis address.
func WithBreakerRedis(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Breaker.RedisAddr = addr
	}
}
