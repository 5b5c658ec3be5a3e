package providers_test

import (
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/providers"
)

func TestDecodeModelJSONVariants(t *testing.T) {
	type payload struct {
		Format string `json:"format"`
	}

	cases := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain", content: `{"format":"WEBTOON"}`, want: "WEBTOON"},
		{name: "fenced", content: "```json\n{\"format\":\"CARD_NEWS\"}\n```", want: "CARD_NEWS"},
		{name: "fence without language", content: "```\n{\"format\":\"WEBTOON\"}\n```", want: "WEBTOON"},
		{name: "prose around object", content: "Here you go: {\"format\":\"CARD_NEWS\"} hope that helps", want: "CARD_NEWS"},
		{name: "empty", content: "   ", wantErr: true},
		{name: "not json", content: "no structured data here", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed payload
			err := providers.DecodeModelJSON(tc.content, &parsed)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeModelJSON failed: %v", err)
			}
			if parsed.Format != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, parsed.Format)
			}
		})
	}
}

func TestHTTPStatusErrorExposesCode(t *testing.T) {
	err := &providers.HTTPStatusError{Code: 503, Body: "overloaded"}
	if err.StatusCode() != 503 {
		t.Fatalf("unexpected code %d", err.StatusCode())
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected error text")
	}
}
