// Package providers defines the capability interfaces for generation
// backends and a memoizing factory that builds them from configuration.
//
// Each backend (Google, OpenAI) implements text, tool-calling, image,
// vision, and speech capabilities behind small interfaces so pipeline code
// never touches provider wire formats.
package providers

import (
	"fmt"
	"strings"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model's request to invoke a registered tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes a callable tool offered to the model. Parameters is a
// JSON Schema object serialized as a string.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  string
}

// ChatResult is the model's reply to a Chat call. When ToolCalls is
// non-empty the model wants tools executed before it can answer.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// ReferenceMode states how a reference image steers generation.
type ReferenceMode string

const (
	// ReferenceStyle asks the model to match the reference's visual style.
	ReferenceStyle ReferenceMode = "style"
	// ReferenceContent asks the model to depict the reference's subject.
	ReferenceContent ReferenceMode = "content"
)

// ImageReference carries an optional steering image for generation.
type ImageReference struct {
	Data []byte
	MIME string
	Mode ReferenceMode
}

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Prompt string
	// Model overrides the configured image model when non-empty, which is
	// how the circuit breaker's fallback model reaches the wire call.
	Model     string
	Reference *ImageReference
}

// HTTPStatusError is returned for non-2xx upstream responses. It satisfies
// the breaker's StatusCoder so failures can be classified by code.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("provider request: http %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// StatusCode returns the upstream HTTP status.
func (e *HTTPStatusError) StatusCode() int {
	return e.Code
}
