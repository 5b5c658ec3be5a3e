package articlegen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/team-leekim/newsnack-ai/internal/breaker"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/retry"
)

const imageCount = 4

// generateImages renders the article's image set. Two strategies:
// independent parallel generation, or anchor-then-chain when the
// provider supports reference images. Either way the node is
// all-or-nothing: uploads start only after all four renders succeed in
// memory, so a partial set never reaches storage.
func (g *Generator) generateImages(ctx context.Context, state *State) error {
	images := make([][]byte, imageCount)

	if g.providerName == "google" && g.withReference {
		if err := g.generateChained(ctx, state, images); err != nil {
			return err
		}
	} else {
		if err := g.generateIndependent(ctx, state, images); err != nil {
			return err
		}
	}

	urls := make([]string, imageCount)
	for idx, image := range images {
		key := fmt.Sprintf("articles/%s/image_%d.png", state.ContentKey, idx)
		url, err := g.objects.PutBytes(ctx, key, image, "image/png")
		if err != nil {
			return fmt.Errorf("upload image %d: %w", idx, err)
		}
		urls[idx] = url
	}
	state.ImageURLs = urls
	return nil
}

// generateChained renders the anchor image first, optionally content-
// referencing the validated research image, then fans out the rest with
// the anchor as their style reference. The anchor is a true data
// dependency; images 1-3 complete in any order and land back in index
// order.
func (g *Generator) generateChained(ctx context.Context, state *State, images [][]byte) error {
	var anchorRef *providers.ImageReference
	if state.ReferenceURL != "" {
		data, mimeType, err := g.downloadImage(ctx, state.ReferenceURL)
		if err != nil {
			g.logger.Warn("reference image download failed, anchoring without it",
				logging.String("url", state.ReferenceURL),
				logging.Error(err))
		} else {
			anchorRef = &providers.ImageReference{
				Data: data,
				MIME: mimeType,
				Mode: providers.ReferenceContent,
			}
		}
	}

	anchor, err := g.generateOne(ctx, 0, state, anchorRef)
	if err != nil {
		return fmt.Errorf("image 0: %w", err)
	}
	images[0] = anchor

	grp, grpCtx := errgroup.WithContext(ctx)
	for idx := 1; idx < imageCount; idx++ {
		grp.Go(func() error {
			image, err := g.generateOne(grpCtx, idx, state, &providers.ImageReference{
				Data: anchor,
				MIME: "image/png",
				Mode: providers.ReferenceStyle,
			})
			if err != nil {
				return fmt.Errorf("image %d: %w", idx, err)
			}
			images[idx] = image
			return nil
		})
	}
	return grp.Wait()
}

func (g *Generator) generateIndependent(ctx context.Context, state *State, images [][]byte) error {
	grp, grpCtx := errgroup.WithContext(ctx)
	for idx := 0; idx < imageCount; idx++ {
		grp.Go(func() error {
			image, err := g.generateOne(grpCtx, idx, state, nil)
			if err != nil {
				return fmt.Errorf("image %d: %w", idx, err)
			}
			images[idx] = image
			return nil
		})
	}
	return grp.Wait()
}

// generateOne is one image sub-task: retry innermost, circuit breaker
// outermost. The breaker's fallback re-invokes the same retried call
// with the fallback model substituted.
func (g *Generator) generateOne(ctx context.Context, idx int, state *State, ref *providers.ImageReference) ([]byte, error) {
	prompt := buildImagePrompt(state.Format, state.ImagePrompts[idx])

	call := func(model string) func(context.Context) ([]byte, error) {
		return func(ctx context.Context) ([]byte, error) {
			return retry.DoValue(ctx, g.retry, func(ctx context.Context) ([]byte, error) {
				return g.provider.GenerateImage(ctx, providers.ImageRequest{
					Prompt:    prompt,
					Model:     model,
					Reference: ref,
				})
			})
		}
	}

	if g.circuit == nil {
		return call("")(ctx)
	}
	var fallback func(context.Context) ([]byte, error)
	if g.fallbackModel != "" {
		fallback = call(g.fallbackModel)
	}
	return breaker.Execute(ctx, g.circuit, call(""), fallback)
}
