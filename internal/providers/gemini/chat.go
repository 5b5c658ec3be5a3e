package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/providers"
)

// CompleteJSON issues a JSON-only completion against the chat model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("gemini complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("gemini complete: user prompt required")
	}

	resp, err := c.generate(ctx, c.cfg.ChatModel, generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: &generationConf{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", err
	}
	payload := firstTextPart(resp)
	if payload == "" {
		return "", errors.New("gemini complete: empty content")
	}
	return payload, nil
}

// CompleteJSONVision issues a JSON-only completion over a prompt plus image.
func (c *Client) CompleteJSONVision(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("gemini vision: image required")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	resp, err := c.generate(ctx, c.cfg.ChatModel, generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: strings.TrimSpace(systemPrompt)}}},
		Contents: []content{
			{Role: "user", Parts: []part{
				{Text: strings.TrimSpace(userPrompt)},
				{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			}},
		},
		GenerationConfig: &generationConf{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", err
	}
	payload := firstTextPart(resp)
	if payload == "" {
		return "", errors.New("gemini vision: empty content")
	}
	return payload, nil
}

// Chat runs one turn of a tool-calling conversation.
func (c *Client) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
	var system *content
	contents := make([]content, 0, len(messages))

	for _, message := range messages {
		switch message.Role {
		case providers.RoleSystem:
			system = &content{Parts: []part{{Text: message.Content}}}
		case providers.RoleUser:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: message.Content}}})
		case providers.RoleAssistant:
			parts := make([]part, 0, 1+len(message.ToolCalls))
			if message.Content != "" {
				parts = append(parts, part{Text: message.Content})
			}
			for _, call := range message.ToolCalls {
				parts = append(parts, part{FunctionCall: &functionCall{
					Name: call.Name,
					Args: json.RawMessage(call.Arguments),
				}})
			}
			contents = append(contents, content{Role: "model", Parts: parts})
		case providers.RoleTool:
			contents = append(contents, content{Role: "user", Parts: []part{{
				FunctionResponse: &functionResponse{
					Name:     message.ToolCallID,
					Response: map[string]any{"content": message.Content},
				},
			}}})
		default:
			return nil, fmt.Errorf("gemini chat: unknown role %q", message.Role)
		}
	}

	payload := generateRequest{
		SystemInstruction: system,
		Contents:          contents,
	}
	if len(tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(tools))
		for _, tool := range tools {
			declarations = append(declarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  json.RawMessage(tool.Parameters),
			})
		}
		payload.Tools = []toolBlock{{FunctionDeclarations: declarations}}
	}

	resp, err := c.generate(ctx, c.cfg.ChatModel, payload)
	if err != nil {
		return nil, err
	}

	result := &providers.ChatResult{Content: firstTextPart(resp)}
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.FunctionCall == nil {
				continue
			}
			args := "{}"
			if len(p.FunctionCall.Args) > 0 {
				args = string(p.FunctionCall.Args)
			}
			result.ToolCalls = append(result.ToolCalls, providers.ToolCall{
				// Gemini correlates tool responses by function name, so the
				// call name doubles as the id.
				ID:        p.FunctionCall.Name,
				Name:      p.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	if result.Content == "" && len(result.ToolCalls) == 0 {
		return nil, errors.New("gemini chat: empty content and no tool calls")
	}
	return result, nil
}
