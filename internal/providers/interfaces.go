package providers

import "context"

// ChatProvider produces text and structured JSON completions.
type ChatProvider interface {
	// CompleteJSON issues a JSON-only completion and returns the raw
	// payload produced by the model.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Chat runs one turn of a tool-calling conversation.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResult, error)
}

// VisionProvider answers JSON-only questions about an image.
type VisionProvider interface {
	CompleteJSONVision(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
}

// ImageProvider renders an image from a prompt, optionally steered by a
// reference image.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error)
}

// SpeechProvider synthesizes narration. Implementations normalize output to
// WAV so duration measurement has a single decode path.
type SpeechProvider interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Provider bundles every capability a generation backend offers.
type Provider interface {
	ChatProvider
	VisionProvider
	ImageProvider
	SpeechProvider
	Name() string
}
