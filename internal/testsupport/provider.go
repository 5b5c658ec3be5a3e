package testsupport

import (
	"context"
	"errors"

	"github.com/team-leekim/newsnack-ai/internal/providers"
)

// StubProvider implements providers.Provider with per-call function
// fields. Unset fields return an "unexpected call" error so a test
// only has to stub the capabilities it exercises.
type StubProvider struct {
	ProviderName           string
	CompleteJSONFunc       func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ChatFunc               func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error)
	CompleteJSONVisionFunc func(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
	GenerateImageFunc      func(ctx context.Context, req providers.ImageRequest) ([]byte, error)
	SynthesizeFunc         func(ctx context.Context, text string) ([]byte, error)
}

var _ providers.Provider = (*StubProvider)(nil)

func (s *StubProvider) Name() string {
	if s.ProviderName == "" {
		return "stub"
	}
	return s.ProviderName
}

func (s *StubProvider) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.CompleteJSONFunc == nil {
		return "", errors.New("stub provider: unexpected CompleteJSON call")
	}
	return s.CompleteJSONFunc(ctx, systemPrompt, userPrompt)
}

func (s *StubProvider) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
	if s.ChatFunc == nil {
		return nil, errors.New("stub provider: unexpected Chat call")
	}
	return s.ChatFunc(ctx, messages, tools)
}

func (s *StubProvider) CompleteJSONVision(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error) {
	if s.CompleteJSONVisionFunc == nil {
		return "", errors.New("stub provider: unexpected CompleteJSONVision call")
	}
	return s.CompleteJSONVisionFunc(ctx, systemPrompt, userPrompt, image, mimeType)
}

func (s *StubProvider) GenerateImage(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	if s.GenerateImageFunc == nil {
		return nil, errors.New("stub provider: unexpected GenerateImage call")
	}
	return s.GenerateImageFunc(ctx, req)
}

func (s *StubProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.SynthesizeFunc == nil {
		return nil, errors.New("stub provider: unexpected Synthesize call")
	}
	return s.SynthesizeFunc(ctx, text)
}
