package research_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/research"
	"github.com/team-leekim/newsnack-ai/internal/testsupport"
)

func researchConfig(t *testing.T, handler http.Handler) config.Research {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Default().Research
	cfg.Enabled = true
	cfg.MaxIterations = 4
	cfg.LogoSearchBaseURL = server.URL + "/logo/search"
	cfg.LogoImageBaseURL = server.URL + "/logo/img"
	cfg.WikipediaBaseURL = server.URL + "/wiki"
	cfg.ImageSearchBaseURL = server.URL + "/images"
	cfg.LogoSecretKey = "sk_test"
	cfg.LogoPublishableKey = "pk_test"
	cfg.ImageSearchAPIKey = "kakao_test"
	return cfg
}

func TestFindRunsToolThenAnswers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logo/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`[{"name":"Acme","domain":"acme.com"},{"name":"NoDomain"}]`))
	})
	cfg := researchConfig(t, mux)

	var toolOutput string
	turn := 0
	chat := &testsupport.StubProvider{
		ChatFunc: func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
			turn++
			switch turn {
			case 1:
				if len(tools) != 3 {
					t.Fatalf("expected 3 tool specs, got %d", len(tools))
				}
				return &providers.ChatResult{ToolCalls: []providers.ToolCall{
					{ID: "call_1", Name: "get_company_logo", Arguments: `{"company_name_in_english":"Acme"}`},
				}}, nil
			case 2:
				last := messages[len(messages)-1]
				if last.Role != providers.RoleTool || last.ToolCallID != "call_1" {
					t.Fatalf("expected tool result message, got %+v", last)
				}
				toolOutput = last.Content
				return &providers.ChatResult{Content: "The best match is https://img.example/acme.png"}, nil
			default:
				t.Fatal("unexpected extra chat turn")
				return nil, nil
			}
		},
	}

	agent := research.NewAgent(chat, cfg, nil)
	url, err := agent.Find(context.Background(), "Acme raises funding", "Acme announced a new round.")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if url != "https://img.example/acme.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.Contains(toolOutput, `"domain":"acme.com"`) {
		t.Fatalf("tool output missing candidate: %s", toolOutput)
	}
	if !strings.Contains(toolOutput, "token=pk_test") {
		t.Fatalf("logo url missing publishable key: %s", toolOutput)
	}
	if strings.Contains(toolOutput, "NoDomain") {
		t.Fatalf("candidate without domain should be dropped: %s", toolOutput)
	}
}

func TestFindReturnsEmptyOnNone(t *testing.T) {
	cfg := researchConfig(t, http.NewServeMux())
	chat := &testsupport.StubProvider{
		ChatFunc: func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
			return &providers.ChatResult{Content: "NONE"}, nil
		},
	}

	url, err := research.NewAgent(chat, cfg, nil).Find(context.Background(), "Inflation statistics", "CPI rose 0.2%.")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if url != "" {
		t.Fatalf("expected no url, got %q", url)
	}
}

func TestFindStopsAtIterationCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logo/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	cfg := researchConfig(t, mux)
	cfg.MaxIterations = 3

	calls := 0
	chat := &testsupport.StubProvider{
		ChatFunc: func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
			calls++
			return &providers.ChatResult{ToolCalls: []providers.ToolCall{
				{ID: "loop", Name: "get_company_logo", Arguments: `{"company_name_in_english":"Acme"}`},
			}}, nil
		},
	}

	url, err := research.NewAgent(chat, cfg, nil).Find(context.Background(), "t", "s")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if url != "" {
		t.Fatalf("expected empty url at cap, got %q", url)
	}
	if calls != 3 {
		t.Fatalf("expected 3 chat turns, got %d", calls)
	}
}

func TestFallbackImageResolvesOpenGraph(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/images", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "KakaoAK kakao_test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"documents":[{"image_url":"","display_sitename":"DailyNews","doc_url":"` +
			"http://" + r.Host + `/article"}]}`))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:image" content="https://cdn.dailynews/img.jpg"/></head></html>`))
	})
	cfg := researchConfig(t, mux)

	chat := &testsupport.StubProvider{
		ChatFunc: func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
			last := messages[len(messages)-1]
			if last.Role == providers.RoleTool {
				if !strings.Contains(last.Content, "https://cdn.dailynews/img.jpg") {
					t.Fatalf("expected og:image in tool output, got %s", last.Content)
				}
				return &providers.ChatResult{Content: "https://cdn.dailynews/img.jpg"}, nil
			}
			return &providers.ChatResult{ToolCalls: []providers.ToolCall{
				{ID: "fb", Name: "get_fallback_image", Arguments: `{"query":"daily news"}`},
			}}, nil
		},
	}

	url, err := research.NewAgent(chat, cfg, nil).Find(context.Background(), "t", "s")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if url != "https://cdn.dailynews/img.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
}
