package testsupport

import (
	"context"
	"fmt"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/store"
)

// MustOpenStore opens a store for the provided config and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

// SeedWorkItems inserts n pending work items and returns their identifiers.
func SeedWorkItems(t testing.TB, st *store.Store, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		item, err := st.AddWorkItem(ctx, &store.WorkItem{
			Title:    fmt.Sprintf("Headline %d", i+1),
			Body:     fmt.Sprintf("Body text for headline %d.", i+1),
			Press:    "Test Press",
			Category: "tech",
		})
		if err != nil {
			t.Fatalf("seed work item: %v", err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

// SeedEditorPersona is the persona text SeedEditor assigns.
const SeedEditorPersona = "Curious and upbeat. Prefers plain language."

// SeedEditor inserts an editor persona bound to the given categories.
func SeedEditor(t testing.TB, st *store.Store, name string, categories ...string) *store.Editor {
	t.Helper()
	editor, err := st.AddEditor(context.Background(), &store.Editor{
		Name:       name,
		Persona:    SeedEditorPersona,
		Categories: categories,
	})
	if err != nil {
		t.Fatalf("seed editor: %v", err)
	}
	return editor
}
