package storestate

import (
	"testing"
	"time"

	"github.com/tonegraph/euphony/internal/euphash"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestRecordArtifactAndList(t *testing.T) {
	idx := newTestIndex(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	h1 := euphash.Sum([]byte("one"))
	h2 := euphash.Sum([]byte("two"))

	if err := idx.RecordArtifact(h1, KindRaw, 1024, now); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if err := idx.RecordArtifact(h2, KindGroup, 40, now.Add(time.Minute)); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}

	records, err := idx.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Hash != h2 {
		t.Fatalf("expected most-recent-first ordering, got %x first", records[0].Hash)
	}
}

func TestRecordArtifactUpsertsOnDuplicateHash(t *testing.T) {
	idx := newTestIndex(t)
	hash := euphash.Sum([]byte("content"))
	now := time.Now()

	if err := idx.RecordArtifact(hash, KindRaw, 100, now); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if err := idx.RecordArtifact(hash, KindRaw, 200, now.Add(time.Hour)); err != nil {
		t.Fatalf("RecordArtifact (second): %v", err)
	}

	records, err := idx.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (upsert, not insert)", len(records))
	}
	if records[0].Size != 200 {
		t.Fatalf("Size = %d, want 200 (latest write should win)", records[0].Size)
	}
}

func TestListByKindFiltersCorrectly(t *testing.T) {
	idx := newTestIndex(t)
	now := time.Now()

	idx.RecordArtifact(euphash.Sum([]byte("a")), KindRaw, 1, now)
	idx.RecordArtifact(euphash.Sum([]byte("b")), KindGroup, 2, now)
	idx.RecordArtifact(euphash.Sum([]byte("c")), KindMIDI, 3, now)

	groups, err := idx.ListByKind(KindGroup)
	if err != nil {
		t.Fatalf("ListByKind: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d group records, want 1", len(groups))
	}
	if groups[0].Kind != KindGroup {
		t.Fatalf("Kind = %q, want %q", groups[0].Kind, KindGroup)
	}
}
