package turnlog

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "turns.db")

	s, err := OpenSQLiteStore(ctx, path, 100)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, text := range []string{"first", "second", "third"} {
		if err := s.AddTurn(ctx, Turn{Role: RoleSystem, Text: text, IsFinal: true}); err != nil {
			t.Fatalf("add turn: %v", err)
		}
	}
	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 || got[0].Text != "first" || got[2].Text != "third" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if got[0].Role != RoleSystem || !got[0].IsFinal || got[0].At.IsZero() {
		t.Fatalf("columns not preserved: %+v", got[0])
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen to prove the rows persisted.
	s2, err := OpenSQLiteStore(ctx, path, 100)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()
	n, err := s2.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 persisted turns, got %d", n)
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "turns.db"), 2)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	for _, text := range []string{"a", "b", "c", "d"} {
		if err := s.AddTurn(ctx, Turn{Role: RoleUser, Text: text}); err != nil {
			t.Fatalf("add turn: %v", err)
		}
	}
	if err := s.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Text != "c" || got[1].Text != "d" {
		t.Fatalf("expected newest two rows kept, got %+v", got)
	}
}
