package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/audio"
)

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize narrates the text with the configured TTS voice. WAV output is
// requested directly; raw PCM still comes back from some gateway deployments
// that ignore response_format, so those payloads get wrapped here.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("openai speech: text required")
	}

	body, err := c.post(ctx, "/audio/speech", speechRequest{
		Model:          c.cfg.TTSModel,
		Input:          text,
		Voice:          c.cfg.TTSVoice,
		ResponseFormat: "wav",
	})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("openai speech: empty payload")
	}
	if audio.IsWAV(body) {
		return body, nil
	}
	wrapped, err := audio.PCMToWAV(body, c.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("openai speech: wrap pcm: %w", err)
	}
	return wrapped, nil
}
