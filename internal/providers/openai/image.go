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

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage renders an image from a prompt. The OpenAI image endpoint
// takes no reference attachment, so reference guidance is folded into the
// prompt text instead.
func (c *Client) GenerateImage(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("openai image: prompt required")
	}
	if req.Reference != nil && req.Reference.Mode == providers.ReferenceStyle {
		prompt = "Keep a single consistent illustration style across a series of images.\n\n" + prompt
	}

	model := req.Model
	if model == "" {
		model = c.cfg.ImageModel
	}

	body, err := c.post(ctx, "/images/generations", imageRequest{
		Model:          model,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, err
	}

	var decoded imageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("openai image: decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("openai image: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return nil, errors.New("openai image: empty data")
	}

	data, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode payload: %w", err)
	}
	return data, nil
}
