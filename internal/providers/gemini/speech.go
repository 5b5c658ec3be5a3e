package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/audio"
)

// Synthesize narrates the text with the configured TTS voice. Gemini returns
// raw PCM, which is wrapped into a WAV container before returning.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("gemini speech: text required")
	}

	resp, err := c.generate(ctx, c.cfg.TTSModel, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConf{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoice{VoiceName: c.cfg.TTSVoice},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	payload := firstInlinePart(resp, "audio/")
	if payload == nil {
		return nil, errors.New("gemini speech: response has no audio part")
	}
	pcm, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("gemini speech: decode payload: %w", err)
	}
	if audio.IsWAV(pcm) {
		return pcm, nil
	}
	wrapped, err := audio.PCMToWAV(pcm, c.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("gemini speech: wrap pcm: %w", err)
	}
	return wrapped, nil
}
