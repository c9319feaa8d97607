package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLookup(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, found, err := s.LastChunkCount(ctx, "report.pdf"); err != nil || found {
		t.Fatalf("unknown source: found=%v err=%v, want not found", found, err)
	}

	if err := s.RecordIngest(ctx, "report.pdf", 12); err != nil {
		t.Fatalf("RecordIngest: %v", err)
	}
	count, found, err := s.LastChunkCount(ctx, "report.pdf")
	if err != nil || !found || count != 12 {
		t.Fatalf("got count=%d found=%v err=%v, want 12", count, found, err)
	}

	// re-ingest replaces the row instead of adding one
	if err := s.RecordIngest(ctx, "report.pdf", 5); err != nil {
		t.Fatalf("RecordIngest update: %v", err)
	}
	count, _, err = s.LastChunkCount(ctx, "report.pdf")
	if err != nil || count != 5 {
		t.Fatalf("got count=%d err=%v after update, want 5", count, err)
	}
}

func TestListOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"zeta.txt", "alpha.pdf", "mid.md"} {
		if err := s.RecordIngest(ctx, src, 1); err != nil {
			t.Fatalf("RecordIngest(%s): %v", src, err)
		}
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha.pdf", "mid.md", "zeta.txt"}
	if len(infos) != len(want) {
		t.Fatalf("got %d rows, want %d", len(infos), len(want))
	}
	for i, info := range infos {
		if info.Source != want[i] {
			t.Errorf("row %d: source = %q, want %q", i, info.Source, want[i])
		}
		if info.IngestedAt.IsZero() {
			t.Errorf("row %d: zero ingest time", i)
		}
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	infos, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("got %d rows from empty ledger", len(infos))
	}
}
