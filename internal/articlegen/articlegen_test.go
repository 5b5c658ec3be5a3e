package articlegen_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/articlegen"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/objstore"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/research"
	"github.com/team-leekim/newsnack-ai/internal/store"
	"github.com/team-leekim/newsnack-ai/internal/testsupport"
)

const analysisJSON = `{"title":"Chip deal sealed","summary":["Deal closed.","Price undisclosed.","Production starts soon."],"content_type":"CARD_NEWS"}`

func draftJSON() string {
	return `{"final_body":"The chip deal explained.","image_prompts":["panel one","panel two","panel three","panel four"]}`
}

// recordingStore counts uploads and keeps what was written per key.
type recordingStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newRecordingStore() *recordingStore {
	return &recordingStore{data: make(map[string][]byte)}
}

func (r *recordingStore) PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = append([]byte(nil), data...)
	return "https://cdn.test/" + key, nil
}

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

func fastRetry(cfg *config.Config) {
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.MinDelaySeconds = 0
	cfg.Retry.MaxDelaySeconds = 0
}

func seededItem(t *testing.T, st *store.Store) *store.WorkItem {
	t.Helper()
	ids := testsupport.SeedWorkItems(t, st, 1)
	item, err := st.GetWorkItem(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("get work item: %v", err)
	}
	return item
}

func TestRunPublishesArticle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	fastRetry(cfg)
	st := testsupport.MustOpenStore(t, cfg)
	editor := testsupport.SeedEditor(t, st, "Dana", "tech")
	item := seededItem(t, st)

	objects := newRecordingStore()
	provider := &testsupport.StubProvider{
		CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
			if strings.Contains(system, "news curation expert") {
				return analysisJSON, nil
			}
			if !strings.Contains(system, testsupport.SeedEditorPersona) {
				t.Errorf("draft system prompt missing persona: %q", system)
			}
			return draftJSON(), nil
		},
		GenerateImageFunc: func(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
			if req.Reference != nil {
				t.Error("independent strategy must not pass a reference")
			}
			return []byte("img:" + req.Prompt), nil
		},
	}

	gen, err := articlegen.New(cfg, st, provider, objects)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	article, err := gen.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(article.ImageURLs) != 4 {
		t.Fatalf("expected 4 image urls, got %d", len(article.ImageURLs))
	}
	if article.ThumbnailURL != article.ImageURLs[0] {
		t.Fatalf("thumbnail %q is not image 0 %q", article.ThumbnailURL, article.ImageURLs[0])
	}
	if article.EditorID != editor.ID {
		t.Fatalf("expected category-matched editor %d, got %d", editor.ID, article.EditorID)
	}
	if len(article.Citations) == 0 || article.Citations[0].Title != item.Title {
		t.Fatalf("unexpected citations %+v", article.Citations)
	}
	if objects.count() != 4 {
		t.Fatalf("expected 4 uploads, got %d", objects.count())
	}

	updated, err := st.GetWorkItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get work item: %v", err)
	}
	if updated.Status != store.StatusCompleted {
		t.Fatalf("expected completed work item, got %s", updated.Status)
	}
}

func TestGenerateImagesAllOrNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	fastRetry(cfg)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEditor(t, st, "Dana", "tech")
	item := seededItem(t, st)

	objects := newRecordingStore()
	provider := &testsupport.StubProvider{
		CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
			if strings.Contains(system, "news curation expert") {
				return analysisJSON, nil
			}
			return draftJSON(), nil
		},
		GenerateImageFunc: func(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
			if strings.Contains(req.Prompt, "panel three") {
				return nil, fmt.Errorf("render exploded")
			}
			return []byte("ok"), nil
		},
	}

	gen, err := articlegen.New(cfg, st, provider, objects)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := gen.Run(context.Background(), item); err == nil {
		t.Fatal("expected run to fail")
	}
	if objects.count() != 0 {
		t.Fatalf("expected zero uploads after a failed render, got %d", objects.count())
	}
}

func TestChainedImagesKeepIndexOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fastRetry(cfg)
	cfg.Provider.Google.ImageWithReference = true
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEditor(t, st, "Dana", "tech")
	item := seededItem(t, st)

	objects := newRecordingStore()
	var mu sync.Mutex
	var anchorDone bool
	provider := &testsupport.StubProvider{
		CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
			if strings.Contains(system, "news curation expert") {
				return analysisJSON, nil
			}
			return draftJSON(), nil
		},
		GenerateImageFunc: func(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
			mu.Lock()
			first := !anchorDone
			anchorDone = true
			mu.Unlock()
			if first {
				if req.Reference != nil {
					t.Error("anchor render must not carry a reference without a researched image")
				}
				return []byte("anchor"), nil
			}
			if req.Reference == nil || req.Reference.Mode != providers.ReferenceStyle {
				t.Errorf("dependent render missing style reference: %+v", req.Reference)
			} else if string(req.Reference.Data) != "anchor" {
				t.Error("dependent render must reference the anchor bytes")
			}
			// Finish out of submission order.
			switch {
			case strings.Contains(req.Prompt, "panel two"):
				time.Sleep(30 * time.Millisecond)
			case strings.Contains(req.Prompt, "panel three"):
				time.Sleep(10 * time.Millisecond)
			}
			return []byte("img:" + req.Prompt), nil
		},
	}

	gen, err := articlegen.New(cfg, st, provider, objects)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	article, err := gen.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantFragments := []string{"anchor", "panel two", "panel three", "panel four"}
	for idx, fragment := range wantFragments {
		key := fmt.Sprintf("articles/%s/image_%d.png", article.ContentKey, idx)
		data, ok := objects.data[key]
		if !ok {
			t.Fatalf("missing upload for index %d", idx)
		}
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("index %d holds %q, want content for %q", idx, data, fragment)
		}
	}
}

func TestRunFailsWithoutEditors(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	fastRetry(cfg)
	st := testsupport.MustOpenStore(t, cfg)
	item := seededItem(t, st)

	provider := &testsupport.StubProvider{
		CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
			return analysisJSON, nil
		},
	}
	gen, err := articlegen.New(cfg, st, provider, newRecordingStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = gen.Run(context.Background(), item)
	if err == nil || !strings.Contains(err.Error(), "no editors") {
		t.Fatalf("expected missing-editor failure, got %v", err)
	}
}

func TestDebugValidationClearsRejectedReference(t *testing.T) {
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("candidate-image"))
	}))
	defer imageServer.Close()
	candidateURL := imageServer.URL + "/logo.png"

	cfg := testsupport.NewConfig(t)
	fastRetry(cfg)
	cfg.Provider.Google.ImageWithReference = true
	cfg.Research.Enabled = true
	st := testsupport.MustOpenStore(t, cfg)
	item := seededItem(t, st)

	verdicts := map[bool]string{
		true:  `{"reason":"official logo","is_valid":true}`,
		false: `{"reason":"unrelated cartoon","is_valid":false}`,
	}
	for _, accept := range []bool{true, false} {
		provider := &testsupport.StubProvider{
			CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
				return analysisJSON, nil
			},
			ChatFunc: func(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec) (*providers.ChatResult, error) {
				return &providers.ChatResult{Content: candidateURL}, nil
			},
			CompleteJSONVisionFunc: func(ctx context.Context, system, user string, image []byte, mimeType string) (string, error) {
				if string(image) != "candidate-image" {
					t.Errorf("validator got wrong image bytes %q", image)
				}
				return verdicts[accept], nil
			},
		}
		agent := research.NewAgent(provider, cfg.Research, nil)
		gen, err := articlegen.New(cfg, st, provider, newRecordingStore(), articlegen.WithResearchAgent(agent))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		state, err := gen.Debug(context.Background(), item, true)
		if err != nil {
			t.Fatalf("Debug failed: %v", err)
		}
		if accept && state.ReferenceURL != candidateURL {
			t.Fatalf("accepted reference should survive, got %q", state.ReferenceURL)
		}
		if !accept && state.ReferenceURL != "" {
			t.Fatalf("rejected reference should be cleared, got %q", state.ReferenceURL)
		}
	}
}

var _ objstore.Store = (*recordingStore)(nil)
