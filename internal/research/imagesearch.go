package research

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// FallbackImageTool is the last-resort generic image search, used when
// the authoritative tools come up empty. Results missing a direct
// image URL are resolved by scraping the source page's og:image tag.
type FallbackImageTool struct {
	client *toolClient
	cfg    config.Research
}

func (t *FallbackImageTool) Name() string { return "get_fallback_image" }

func (t *FallbackImageTool) Description() string {
	return "Last-resort generic image search, used only after get_company_logo or get_person_thumbnail returned TOOL_FAILED. " +
		"Search with 2-3 words naming only the core person or organization, never the event (e.g. \"Samsung logo\", \"CEO Hong Gildong\"). " +
		"Returns a JSON list of {image_url, display_sitename, doc_url}; prefer candidates from news outlets."
}

func (t *FallbackImageTool) Parameters() string {
	return `{"type":"object","properties":{"query":{"type":"string","description":"Short search query naming the core entity"}},"required":["query"]}`
}

func (t *FallbackImageTool) Call(ctx context.Context, arguments string) string {
	query, err := decodeArgs(arguments, "query")
	if err != nil || strings.TrimSpace(query) == "" {
		return "TOOL_FAILED: query is required."
	}
	if t.cfg.ImageSearchAPIKey == "" {
		return "TOOL_FAILED: image search API key is not configured."
	}

	searchURL := fmt.Sprintf("%s?query=%s&size=5", t.cfg.ImageSearchBaseURL, url.QueryEscape(query))
	var search struct {
		Documents []struct {
			ImageURL        string `json:"image_url"`
			DisplaySitename string `json:"display_sitename"`
			DocURL          string `json:"doc_url"`
		} `json:"documents"`
	}
	err = t.client.getJSON(ctx, searchURL, map[string]string{
		"Authorization": "KakaoAK " + t.cfg.ImageSearchAPIKey,
	}, &search)
	if err != nil {
		return fmt.Sprintf("TOOL_FAILED: Error occurred - %v.", err)
	}
	if len(search.Documents) == 0 {
		return "TOOL_FAILED: No general images found for the given query."
	}

	type candidate struct {
		DisplaySitename string `json:"display_sitename"`
		ImageURL        string `json:"image_url"`
		DocURL          string `json:"doc_url"`
	}
	candidates := make([]candidate, 0, len(search.Documents))
	for _, doc := range search.Documents {
		imageURL := doc.ImageURL
		if imageURL == "" && doc.DocURL != "" {
			imageURL = t.resolveOpenGraphImage(ctx, doc.DocURL)
		}
		if imageURL == "" {
			continue
		}
		candidates = append(candidates, candidate{
			DisplaySitename: doc.DisplaySitename,
			ImageURL:        imageURL,
			DocURL:          doc.DocURL,
		})
	}
	if len(candidates) == 0 {
		return "TOOL_FAILED: No general images found for the given query."
	}
	return toolJSON(candidates)
}

// resolveOpenGraphImage fetches a result page and reads its og:image
// meta tag. Returns "" when the page has none or cannot be fetched.
func (t *FallbackImageTool) resolveOpenGraphImage(ctx context.Context, pageURL string) string {
	body, err := t.client.get(ctx, pageURL, nil)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
