package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/providers"
)

// GenerateImage renders an image from a prompt. When a reference image is
// supplied and reference-capable generation is enabled the dedicated
// reference model is used instead of the plain image model.
func (c *Client) GenerateImage(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("gemini image: prompt required")
	}

	model := req.Model
	if model == "" {
		model = c.cfg.ImageModel
	}

	parts := []part{}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		if req.Model == "" && c.cfg.ImageWithReference && c.cfg.ImageModelWithReference != "" {
			model = c.cfg.ImageModelWithReference
		}
		mime := req.Reference.MIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
		}})
		prompt = referenceInstruction(req.Reference.Mode) + "\n\n" + prompt
	}
	parts = append(parts, part{Text: prompt})

	resp, err := c.generate(ctx, model, generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConf{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	image := firstInlinePart(resp, "image/")
	if image == nil {
		return nil, errors.New("gemini image: response has no image part")
	}
	data, err := base64.StdEncoding.DecodeString(image.Data)
	if err != nil {
		return nil, fmt.Errorf("gemini image: decode payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("gemini image: empty payload")
	}
	return data, nil
}

func referenceInstruction(mode providers.ReferenceMode) string {
	switch mode {
	case providers.ReferenceContent:
		return "Depict the subject shown in the attached reference image."
	default:
		return "Match the visual style, palette, and linework of the attached reference image."
	}
}
