package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// CompanyLogoTool searches logo.dev for brand logo candidates. The
// search endpoint needs the secret key; the returned image URLs embed
// the publishable key so the model's chosen URL is directly fetchable.
type CompanyLogoTool struct {
	client *toolClient
	cfg    config.Research
}

func (t *CompanyLogoTool) Name() string { return "get_company_logo" }

func (t *CompanyLogoTool) Description() string {
	return "Search logo image candidates for a company or brand. " +
		"Search with the official ENGLISH name only. " +
		"Returns a JSON list of {name, domain, logo_url} candidates."
}

func (t *CompanyLogoTool) Parameters() string {
	return `{"type":"object","properties":{"company_name_in_english":{"type":"string","description":"Official English name of the company or brand"}},"required":["company_name_in_english"]}`
}

func (t *CompanyLogoTool) Call(ctx context.Context, arguments string) string {
	name, err := decodeArgs(arguments, "company_name_in_english")
	if err != nil || strings.TrimSpace(name) == "" {
		return "TOOL_FAILED: company_name_in_english is required. MUST try get_fallback_image instead."
	}

	searchURL := fmt.Sprintf("%s?q=%s", t.cfg.LogoSearchBaseURL, url.QueryEscape(name))
	var results []struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	err = t.client.getJSON(ctx, searchURL, map[string]string{
		"Authorization": "Bearer " + t.cfg.LogoSecretKey,
	}, &results)
	if err != nil {
		return fmt.Sprintf("TOOL_FAILED: Error occurred - %v. MUST try get_fallback_image instead.", err)
	}

	type candidate struct {
		Name    string `json:"name"`
		Domain  string `json:"domain"`
		LogoURL string `json:"logo_url"`
	}
	candidates := make([]candidate, 0, 5)
	for _, result := range results {
		if result.Domain == "" {
			continue
		}
		candidates = append(candidates, candidate{
			Name:   result.Name,
			Domain: result.Domain,
			LogoURL: fmt.Sprintf("%s/%s?token=%s&size=800&format=png&fallback=404",
				t.cfg.LogoImageBaseURL, result.Domain, t.cfg.LogoPublishableKey),
		})
		if len(candidates) == 5 {
			break
		}
	}
	if len(candidates) == 0 {
		return "TOOL_FAILED: No brand candidates found. MUST try get_fallback_image instead."
	}
	return toolJSON(candidates)
}
