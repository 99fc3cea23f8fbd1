package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tonegraph/euphony/internal/euphash"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	dir, err := NewDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	return dir
}

func TestCreateFinishPublishesUnderContentHash(t *testing.T) {
	d := newTestDirectory(t)

	out, err := d.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := []byte("some rendered frames")
	if _, err := out.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	hash, err := out.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if hash != euphash.Sum(payload) {
		t.Fatalf("hash = %x, want %x", hash, euphash.Sum(payload))
	}
	if !d.IsCached(hash) {
		t.Fatal("expected IsCached to report true after Finish")
	}

	r, err := d.OpenRaw(hash)
	if err != nil {
		t.Fatalf("OpenRaw: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestCreateFinishDedupsIdenticalContent(t *testing.T) {
	d := newTestDirectory(t)
	payload := []byte("duplicate content")

	write := func() Hash {
		out, err := d.Create()
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		out.Write(payload)
		hash, err := out.Finish()
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		return hash
	}

	first := write()
	second := write()
	if first != second {
		t.Fatalf("expected identical content to hash identically, got %x and %x", first, second)
	}

	entries, err := os.ReadDir(d.Path())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries in store root, want 1 (dedup)", len(entries))
	}
}

func TestSinkSkipsWhenAlreadyCached(t *testing.T) {
	d := newTestDirectory(t)
	hash := euphash.Sum([]byte("known content"))

	out, ok, err := d.Sink(hash)
	if err != nil {
		t.Fatalf("Sink: %v", err)
	}
	if !ok {
		t.Fatal("expected first Sink call to succeed")
	}
	out.Write([]byte("known content"))
	if _, err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	_, ok, err = d.Sink(hash)
	if err != nil {
		t.Fatalf("Sink (second): %v", err)
	}
	if ok {
		t.Fatal("expected second Sink call for the same hash to report ok=false")
	}
}

func TestWriteGroupAndOpenGroupRoundTrip(t *testing.T) {
	d := newTestDirectory(t)

	entries := []Entry{
		{Offset: 0, Hash: euphash.Sum([]byte("a"))},
		{Offset: 48000, Hash: euphash.Sum([]byte("b"))},
		{Offset: 96000, Hash: euphash.Sum([]byte("c"))},
	}
	groupHash := euphash.Sum([]byte("group manifest content"))
	if err := d.WriteGroup(groupHash, entries); err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}

	r, err := d.OpenGroup(groupHash)
	if err != nil {
		t.Fatalf("OpenGroup: %v", err)
	}
	defer r.Close()

	var got []Entry
	for {
		entry, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, entry)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i] != e {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestWriteGroupSkipsWhenAlreadyPublished(t *testing.T) {
	d := newTestDirectory(t)
	groupHash := euphash.Sum([]byte("group"))

	if err := d.WriteGroup(groupHash, []Entry{{Offset: 1, Hash: euphash.Sum([]byte("x"))}}); err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	if err := d.WriteGroup(groupHash, []Entry{{Offset: 2, Hash: euphash.Sum([]byte("y"))}}); err != nil {
		t.Fatalf("WriteGroup (second): %v", err)
	}

	r, err := d.OpenGroup(groupHash)
	if err != nil {
		t.Fatalf("OpenGroup: %v", err)
	}
	defer r.Close()
	entry, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next: entry=%+v ok=%v err=%v", entry, ok, err)
	}
	if entry.Offset != 1 {
		t.Fatalf("Offset = %d, want 1 (second write should have been skipped)", entry.Offset)
	}
}

func TestWriteMidiDumpAndOpenMidiDumpRoundTrip(t *testing.T) {
	d := newTestDirectory(t)

	entries := []MidiEntry{
		{Offset: 0, Status: 0x90, Data1: 60, Data2: 100},
		{Offset: 24000, Status: 0x80, Data1: 60, Data2: 0},
	}
	hash := euphash.Sum([]byte("midi dump"))
	if err := d.WriteMidiDump(hash, entries); err != nil {
		t.Fatalf("WriteMidiDump: %v", err)
	}

	r, err := d.OpenMidiDump(hash)
	if err != nil {
		t.Fatalf("OpenMidiDump: %v", err)
	}
	defer r.Close()

	var got []MidiEntry
	for {
		entry, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, entry)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i] != e {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestOpenRawMissingHashReturnsErrNotFound(t *testing.T) {
	d := newTestDirectory(t)
	_, err := d.OpenRaw(euphash.Sum([]byte("never written")))
	if err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestHashPathIsURLSafeBase64(t *testing.T) {
	d := newTestDirectory(t)
	hash := euphash.Sum([]byte("x"))
	path := hashPath(d.root, hash)
	name := filepath.Base(path)
	if name != euphash.EncodePath(hash) {
		t.Fatalf("hashPath basename = %q, want %q", name, euphash.EncodePath(hash))
	}
}
