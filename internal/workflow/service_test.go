package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/articlegen"
	"github.com/team-leekim/newsnack-ai/internal/briefing"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/objstore"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/store"
	"github.com/team-leekim/newsnack-ai/internal/testsupport"
	"github.com/team-leekim/newsnack-ai/internal/workflow"
)

const analysisJSON = `{"title":"Chip deal sealed","summary":["Deal closed.","Price undisclosed.","Production starts soon."],"content_type":"CARD_NEWS"}`
const draftJSON = `{"final_body":"The chip deal explained.","image_prompts":["panel one","panel two","panel three","panel four"]}`

func happyProvider() *testsupport.StubProvider {
	return &testsupport.StubProvider{
		CompleteJSONFunc: func(ctx context.Context, system, user string) (string, error) {
			if strings.Contains(system, "news curation expert") {
				return analysisJSON, nil
			}
			return draftJSON, nil
		},
		GenerateImageFunc: func(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
			return []byte("img"), nil
		},
	}
}

func newService(t *testing.T, cfg *config.Config, st *store.Store, provider providers.Provider) *workflow.Service {
	t.Helper()
	objects, err := objstore.NewFS(cfg.Storage)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	generator, err := articlegen.New(cfg, st, provider, objects)
	if err != nil {
		t.Fatalf("articlegen.New failed: %v", err)
	}
	briefer, err := briefing.New(cfg, st, provider, objects)
	if err != nil {
		t.Fatalf("briefing.New failed: %v", err)
	}
	return workflow.New(cfg, st, generator, briefer)
}

func TestClaimAndRunBatchCompletesFailedItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	cfg.Retry.MaxAttempts = 1
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEditor(t, st, "Dana", "tech")
	ids := testsupport.SeedWorkItems(t, st, 1)

	// A previously failed item is re-claimable.
	if err := st.MarkFailed(context.Background(), ids[0], "earlier run broke"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	service := newService(t, cfg, st, happyProvider())
	claimed, err := service.ClaimAndRunBatch(context.Background(), ids)
	if err != nil {
		t.Fatalf("ClaimAndRunBatch failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0] != ids[0] {
		t.Fatalf("unexpected claim result %v", claimed)
	}
	service.Wait()

	item, err := st.GetWorkItem(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetWorkItem failed: %v", err)
	}
	if item.Status != store.StatusCompleted {
		t.Fatalf("expected completed item, got %s (%s)", item.Status, item.ErrorMessage)
	}

	articles, err := st.ArticlesByWorkItemIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("ArticlesByWorkItemIDs failed: %v", err)
	}
	if len(articles) != 1 || len(articles[0].ImageURLs) != 4 {
		t.Fatalf("expected one article with 4 images, got %+v", articles)
	}
}

func TestClaimAndRunBatchIsExclusiveAcrossCallers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	cfg.Retry.MaxAttempts = 1
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEditor(t, st, "Dana", "tech")
	ids := testsupport.SeedWorkItems(t, st, 6)

	service := newService(t, cfg, st, happyProvider())

	const callers = 5
	var mu sync.Mutex
	var all []int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := service.ClaimAndRunBatch(context.Background(), ids)
			if err != nil {
				t.Errorf("ClaimAndRunBatch failed: %v", err)
				return
			}
			mu.Lock()
			all = append(all, claimed...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	service.Wait()

	if len(all) != len(ids) {
		t.Fatalf("claims across callers sum to %d, want %d", len(all), len(ids))
	}
	seen := make(map[int64]bool, len(all))
	for _, id := range all {
		if seen[id] {
			t.Fatalf("id %d claimed more than once", id)
		}
		seen[id] = true
	}
}

func TestFailedRunMarksItemFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	cfg.Retry.MaxAttempts = 1
	st := testsupport.MustOpenStore(t, cfg)
	// No editors seeded: the select-editor node fails the run.
	ids := testsupport.SeedWorkItems(t, st, 1)

	service := newService(t, cfg, st, happyProvider())
	if _, err := service.ClaimAndRunBatch(context.Background(), ids); err != nil {
		t.Fatalf("ClaimAndRunBatch failed: %v", err)
	}
	service.Wait()

	item, err := st.GetWorkItem(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetWorkItem failed: %v", err)
	}
	if item.Status != store.StatusFailed {
		t.Fatalf("expected failed item, got %s", item.Status)
	}
	if !strings.Contains(item.ErrorMessage, "no editors") {
		t.Fatalf("expected error message recorded, got %q", item.ErrorMessage)
	}
}

func TestClaimAndRunBatchEmptyIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	st := testsupport.MustOpenStore(t, cfg)
	ids := testsupport.SeedWorkItems(t, st, 1)
	if _, err := st.Claim(context.Background(), ids); err != nil {
		t.Fatalf("pre-claim failed: %v", err)
	}

	service := newService(t, cfg, st, happyProvider())
	claimed, err := service.ClaimAndRunBatch(context.Background(), ids)
	if err != nil {
		t.Fatalf("ClaimAndRunBatch failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected nothing claimed, got %v", claimed)
	}
}

func TestDebugResearchUnknownItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProvider("openai"))
	st := testsupport.MustOpenStore(t, cfg)

	service := newService(t, cfg, st, happyProvider())
	_, err := service.DebugResearch(context.Background(), 424242, false)
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
