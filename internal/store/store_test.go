package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/store"
	"github.com/team-leekim/newsnack-ai/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := st.AddWorkItem(ctx, &store.WorkItem{Title: "Sample", Body: "Body"})
	if err != nil {
		t.Fatalf("AddWorkItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != store.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := st.GetWorkItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetWorkItem failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Sample" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestAddWorkItemRequiresTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.AddWorkItem(context.Background(), &store.WorkItem{Body: "Body"}); err == nil {
		t.Fatal("expected error when title missing")
	}
}

func TestClaimSkipsIneligibleItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 3)

	// Complete the second item so only the first and third are claimable.
	claimed, err := st.Claim(ctx, []int64{ids[1]})
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected 1 claimed, got %v", claimed)
	}

	claimed, err = st.Claim(ctx, ids)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 2 || claimed[0] != ids[0] || claimed[1] != ids[2] {
		t.Fatalf("expected items %d and %d, got %v", ids[0], ids[2], claimed)
	}

	for _, id := range claimed {
		item, err := st.GetWorkItem(ctx, id)
		if err != nil {
			t.Fatalf("GetWorkItem failed: %v", err)
		}
		if item.Status != store.StatusInProgress {
			t.Fatalf("item %d: expected in_progress, got %s", id, item.Status)
		}
	}
}

func TestClaimFailedItemsAreEligible(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 1)
	if _, err := st.Claim(ctx, ids); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := st.MarkFailed(ctx, ids[0], "image generation timed out"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	claimed, err := st.Claim(ctx, ids)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0] != ids[0] {
		t.Fatalf("expected failed item to be reclaimable, got %v", claimed)
	}

	item, err := st.GetWorkItem(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetWorkItem failed: %v", err)
	}
	if item.ErrorMessage != "" {
		t.Fatalf("expected error message cleared on claim, got %q", item.ErrorMessage)
	}
}

func TestClaimEmptyCandidatesIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	claimed, err := st.Claim(context.Background(), nil)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no claims, got %v", claimed)
	}
}

func TestClaimExclusiveUnderConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 8)

	const callers = 12
	results := make([][]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			claimed, err := st.Claim(ctx, ids)
			if err != nil {
				t.Errorf("Claim failed: %v", err)
				return
			}
			results[slot] = claimed
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]int)
	total := 0
	for _, claimed := range results {
		for _, id := range claimed {
			seen[id]++
			total++
		}
	}
	if total != len(ids) {
		t.Fatalf("expected %d total claims, got %d", len(ids), total)
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("item %d claimed %d times", id, count)
		}
	}
}

func TestPublishArticleTransaction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 1)
	if _, err := st.Claim(ctx, ids); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	editor := testsupport.SeedEditor(t, st, "Jay", "tech")

	article, err := st.PublishArticle(ctx, &store.Article{
		WorkItemID:   ids[0],
		ContentKey:   "f2e7c7f0-4c9c-4eb2-9f1a-1d2e3f4a5b6c",
		Format:       store.FormatCardNews,
		Title:        "Chips Get Smaller",
		Summary:      "Line one.\nLine two.\nLine three.",
		Category:     "tech",
		Body:         "Full article body.",
		EditorID:     editor.ID,
		ThumbnailURL: "https://cdn.example.com/img/0.png",
		ImageURLs: []string{
			"https://cdn.example.com/img/0.png",
			"https://cdn.example.com/img/1.png",
			"https://cdn.example.com/img/2.png",
			"https://cdn.example.com/img/3.png",
		},
		Citations: []store.Citation{
			{Title: "Original", Press: "Test Press", URL: "https://example.com/a"},
			{Title: "Second", Press: "Other", URL: "https://example.com/b"},
			{Title: "Third", Press: "Other", URL: "https://example.com/c"},
			{Title: "Fourth should be dropped", Press: "Other", URL: "https://example.com/d"},
		},
	})
	if err != nil {
		t.Fatalf("PublishArticle failed: %v", err)
	}
	if len(article.ImageURLs) != 4 {
		t.Fatalf("expected 4 image urls, got %d", len(article.ImageURLs))
	}
	if len(article.Citations) != 3 {
		t.Fatalf("expected citations capped at 3, got %d", len(article.Citations))
	}
	if article.ThumbnailURL != article.ImageURLs[0] {
		t.Fatalf("expected thumbnail to match first image, got %q", article.ThumbnailURL)
	}

	item, err := st.GetWorkItem(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetWorkItem failed: %v", err)
	}
	if item.Status != store.StatusCompleted {
		t.Fatalf("expected completed work item, got %s", item.Status)
	}

	counts, err := st.ReactionCountsFor(ctx, article.ID)
	if err != nil {
		t.Fatalf("ReactionCountsFor failed: %v", err)
	}
	if counts == nil {
		t.Fatal("expected reaction counts row")
	}
	if counts.Likes != 0 || counts.Hearts != 0 || counts.Laughs != 0 || counts.Surprises != 0 || counts.Sads != 0 {
		t.Fatalf("expected zeroed reaction counts, got %+v", counts)
	}
}

func TestPublishArticleRollsBackOnMissingWorkItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, err := st.PublishArticle(ctx, &store.Article{
		WorkItemID: 9999,
		ContentKey: "0b1e4a7c-9d2f-4a6b-8c3d-5e6f7a8b9c0d",
		Format:     store.FormatWebtoon,
		Title:      "Orphan",
		Body:       "Body",
	})
	if err == nil {
		t.Fatal("expected error for missing work item")
	}

	article, err := st.GetArticle(ctx, 1)
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if article != nil {
		t.Fatal("expected article insert to be rolled back")
	}
}

func TestArticlesByIDsPreservesRequestOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 3)
	if _, err := st.Claim(ctx, ids); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	var articleIDs []int64
	keys := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	for i, id := range ids {
		article, err := st.PublishArticle(ctx, &store.Article{
			WorkItemID: id,
			ContentKey: keys[i],
			Format:     store.FormatCardNews,
			Title:      "Article",
			Body:       "Body",
		})
		if err != nil {
			t.Fatalf("PublishArticle failed: %v", err)
		}
		articleIDs = append(articleIDs, article.ID)
	}

	want := []int64{articleIDs[2], articleIDs[0], articleIDs[1]}
	got, err := st.ArticlesByIDs(ctx, append([]int64{want[0], want[1]}, 4242, want[2]))
	if err != nil {
		t.Fatalf("ArticlesByIDs failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	for i, article := range got {
		if article.ID != want[i] {
			t.Fatalf("position %d: expected article %d, got %d", i, want[i], article.ID)
		}
	}
}

func TestRetryFailedAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := testsupport.SeedWorkItems(t, st, 3)
	if _, err := st.Claim(ctx, ids[:2]); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := st.MarkFailed(ctx, ids[0], "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[store.StatusFailed] != 1 || stats[store.StatusInProgress] != 1 || stats[store.StatusPending] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	count, err := st.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried, got %d", count)
	}

	health, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 2 || health.Failed != 0 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestEditorsByCategory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEditor(t, st, "Jay", "tech", "science")
	testsupport.SeedEditor(t, st, "Min", "politics")

	editors, err := st.ListEditors(ctx, "tech")
	if err != nil {
		t.Fatalf("ListEditors failed: %v", err)
	}
	if len(editors) != 1 || editors[0].Name != "Jay" {
		t.Fatalf("unexpected editors for tech: %#v", editors)
	}

	all, err := st.ListEditors(ctx, "")
	if err != nil {
		t.Fatalf("ListEditors failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 editors, got %d", len(all))
	}

	none, err := st.ListEditors(ctx, "sports")
	if err != nil {
		t.Fatalf("ListEditors failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no editors for sports, got %d", len(none))
	}
}

func TestBriefingRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	briefing, err := st.AddBriefing(ctx, &store.Briefing{
		Title:           "Morning Briefing",
		AudioURL:        "https://cdn.example.com/briefings/1.wav",
		Script:          "First segment. Second segment.",
		DurationSeconds: 42.5,
		ArticleIDs:      []int64{3, 1},
		Timeline: []store.TimelineEntry{
			{ArticleID: 3, Title: "First", Start: 0, End: 20.25},
			{ArticleID: 1, Title: "Second", Start: 20.25, End: 42.5},
		},
	})
	if err != nil {
		t.Fatalf("AddBriefing failed: %v", err)
	}

	fetched, err := st.GetBriefing(ctx, briefing.ID)
	if err != nil {
		t.Fatalf("GetBriefing failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected briefing")
	}
	if len(fetched.Timeline) != 2 || fetched.Timeline[1].End != 42.5 {
		t.Fatalf("unexpected timeline: %#v", fetched.Timeline)
	}
	if len(fetched.ArticleIDs) != 2 || fetched.ArticleIDs[0] != 3 {
		t.Fatalf("unexpected article ids: %v", fetched.ArticleIDs)
	}
}
