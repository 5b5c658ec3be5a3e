package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/providers"
)

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Tools          []toolDefinition  `json:"tools,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type toolDefinition struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) chat(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("openai chat: decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("openai chat: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("openai chat: empty choices")
	}
	return &decoded, nil
}

// CompleteJSON issues a JSON-only chat completion.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("openai complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("openai complete: user prompt required")
	}

	resp, err := c.chat(ctx, chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai complete: empty content")
	}
	return content, nil
}

// CompleteJSONVision issues a JSON-only completion over a prompt plus image.
func (c *Client) CompleteJSONVision(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("openai vision: image required")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.chat(ctx, chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: providers.RoleSystem, Content: strings.TrimSpace(systemPrompt)},
			{Role: providers.RoleUser, Content: []contentPart{
				{Type: "text", Text: strings.TrimSpace(userPrompt)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			}},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai vision: empty content")
	}
	return content, nil
}

// Chat runs one turn of a tool-calling conversation.
func (c *Client) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
	wireMessages := make([]chatMessage, 0, len(messages))
	for _, message := range messages {
		wire := chatMessage{Role: message.Role, ToolCallID: message.ToolCallID}
		if message.Content != "" || message.Role != providers.RoleAssistant {
			wire.Content = message.Content
		}
		for _, call := range message.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, toolCall{
				ID:   call.ID,
				Type: "function",
				Function: functionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		wireMessages = append(wireMessages, wire)
	}

	payload := chatRequest{Model: c.cfg.ChatModel, Messages: wireMessages}
	for _, tool := range tools {
		payload.Tools = append(payload.Tools, toolDefinition{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  json.RawMessage(tool.Parameters),
			},
		})
	}

	resp, err := c.chat(ctx, payload)
	if err != nil {
		return nil, err
	}

	choice := resp.Choices[0]
	result := &providers.ChatResult{Content: strings.TrimSpace(choice.Message.Content)}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, providers.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	if result.Content == "" && len(result.ToolCalls) == 0 {
		return nil, errors.New("openai chat: empty content and no tool calls")
	}
	return result, nil
}
