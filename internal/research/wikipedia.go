package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// PersonThumbnailTool resolves a person's Wikipedia profile thumbnail.
// It searches for candidate pages first, then pulls each page summary
// for its thumbnail, so the model can pick the person matching the
// article context.
type PersonThumbnailTool struct {
	client *toolClient
	cfg    config.Research
}

func (t *PersonThumbnailTool) Name() string { return "get_person_thumbnail" }

func (t *PersonThumbnailTool) Description() string {
	return "Look up the Wikipedia profile thumbnail of a well-known person. " +
		"Pass the name exactly as written in the article, without translating or romanizing it. " +
		"Returns a JSON list of {title, description, thumbnail_url} candidates; " +
		"pick the person matching the article context."
}

func (t *PersonThumbnailTool) Parameters() string {
	return `{"type":"object","properties":{"person_name":{"type":"string","description":"Name of the person as written in the article"}},"required":["person_name"]}`
}

func (t *PersonThumbnailTool) Call(ctx context.Context, arguments string) string {
	name, err := decodeArgs(arguments, "person_name")
	if err != nil || strings.TrimSpace(name) == "" {
		return "TOOL_FAILED: person_name is required. MUST try get_fallback_image."
	}

	searchURL := fmt.Sprintf(
		"%s/w/api.php?action=query&list=search&srsearch=%s&srlimit=5&srprop=snippet&format=json",
		t.cfg.WikipediaBaseURL, url.QueryEscape(name))
	var search struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := t.client.getJSON(ctx, searchURL, nil, &search); err != nil {
		return fmt.Sprintf("TOOL_FAILED: Error occurred - %v. MUST try get_fallback_image.", err)
	}
	if len(search.Query.Search) == 0 {
		return "TOOL_FAILED: No Wikipedia page found. MUST try get_fallback_image."
	}

	type candidate struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	var candidates []candidate
	for _, page := range search.Query.Search {
		summaryURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
			t.cfg.WikipediaBaseURL, url.PathEscape(page.Title))
		var summary struct {
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		}
		if err := t.client.getJSON(ctx, summaryURL, nil, &summary); err != nil {
			continue
		}
		if summary.Thumbnail == nil || summary.Thumbnail.Source == "" {
			continue
		}
		candidates = append(candidates, candidate{
			Title:        page.Title,
			Description:  page.Snippet,
			ThumbnailURL: summary.Thumbnail.Source,
		})
	}
	if len(candidates) == 0 {
		return "TOOL_FAILED: No Wikipedia thumbnails found for any candidates. MUST try get_fallback_image."
	}
	return toolJSON(candidates)
}
