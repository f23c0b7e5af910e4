package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/termbridge/termbridge/internal/llm"
)

func tempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()

	g := &Generation{
		Provider: "Claude (claude-sonnet-4)",
		Model:    "claude-sonnet-4",
		Prompt:   "explain channels",
		Parts: []llm.Part{
			llm.TextPart("Channels are"),
			llm.InvocationPart("search", map[string]any{"query": "channels"}),
		},
		FinishReason: "stop",
		InputTokens:  12,
		OutputTokens: 40,
		DurationMS:   850,
	}
	if err := store.Record(ctx, g); err != nil {
		t.Fatal(err)
	}
	if g.ID == 0 {
		t.Error("ID not assigned")
	}

	gens, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 1 {
		t.Fatalf("got %d generations", len(gens))
	}
	got := gens[0]
	if got.Prompt != "explain channels" || got.Model != "claude-sonnet-4" {
		t.Errorf("got %+v", got)
	}
	if len(got.Parts) != 2 {
		t.Fatalf("parts = %+v", got.Parts)
	}
	if got.Parts[1].Invocation == nil || got.Parts[1].Invocation.Name != "search" {
		t.Errorf("invocation part lost: %+v", got.Parts[1])
	}
	if got.InputTokens != 12 || got.OutputTokens != 40 {
		t.Errorf("tokens = %d/%d", got.InputTokens, got.OutputTokens)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()

	for _, prompt := range []string{"one", "two", "three"} {
		g := &Generation{Model: "m", Prompt: prompt, Parts: []llm.Part{llm.TextPart("x")}}
		if err := store.Record(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	gens, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 2 {
		t.Fatalf("got %d", len(gens))
	}
	if gens[0].Prompt != "three" || gens[1].Prompt != "two" {
		t.Errorf("order = %q, %q", gens[0].Prompt, gens[1].Prompt)
	}
}

func TestListEmpty(t *testing.T) {
	store := tempStore(t)
	gens, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 0 {
		t.Errorf("got %d", len(gens))
	}
}
