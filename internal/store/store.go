// Package store implements the content-addressed artifact directory:
// rendered sink frames, group manifests, and MIDI dumps share one flat
// namespace keyed by the URL-safe base64 of a blake3 hash, written via
// temp-file-then-rename so concurrent writers to the same hash race
// harmlessly.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tonegraph/euphony/internal/euphash"
)

// Hash is the store's content-address: a blake3 digest, shared with the
// compiler's node/sink hashing.
type Hash = euphash.Hash

// ErrNotFound is returned by the read paths when no artifact exists
// under the requested hash.
var ErrNotFound = errors.New("store: not found")

func hashPath(root string, hash Hash) string {
	return filepath.Join(root, euphash.EncodePath(hash))
}

// Directory is a content-addressed flat directory rooted at path.
type Directory struct {
	root string
}

// NewDirectory returns a Directory rooted at path, creating it (and any
// missing parents) if necessary.
func NewDirectory(path string) (*Directory, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &Directory{root: path}, nil
}

// Path returns the directory's root path.
func (d *Directory) Path() string { return d.root }

// IsCached reports whether an artifact already exists under hash.
func (d *Directory) IsCached(hash Hash) bool {
	_, err := os.Stat(hashPath(d.root, hash))
	return err == nil
}

// OpenRaw opens the raw artifact stored under hash for reading.
func (d *Directory) OpenRaw(hash Hash) (io.ReadCloser, error) {
	f, err := os.Open(hashPath(d.root, hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create begins an incremental write: bytes passed to Output.Write are
// streamed through a blake3 hasher as well as to a temp file, and the
// final hash (known only once writing finishes) names the published
// artifact.
func (d *Directory) Create() (*Output, error) {
	tmp, err := os.CreateTemp(d.root, "tmp-*")
	if err != nil {
		return nil, fmt.Errorf("store: create temp file: %w", err)
	}
	return &Output{
		root:   d.root,
		file:   tmp,
		tmpPath: tmp.Name(),
		hasher: euphash.NewHasher(),
	}, nil
}

// Sink opens a pre-hashed writer for hash: used when the content hash is
// already known (e.g. a node's local hash) ahead of the write, skipping
// the incremental hasher. Returns ok=false if the artifact already
// exists (a Writer can use this to skip rendering entirely).
func (d *Directory) Sink(hash Hash) (out *Output, ok bool, err error) {
	path := hashPath(d.root, hash)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &Output{root: d.root, file: f, hash: hash, preHashed: true}, true, nil
}

// Output is an in-progress write to the store. Write may be called any
// number of times; Finish publishes the file and returns its hash.
type Output struct {
	root      string
	file      *os.File
	tmpPath   string
	hash      Hash
	preHashed bool
	hasher    *euphash.Hasher
}

// Write streams bytes to the underlying file (and, for incremental
// writes, into the running hash).
func (o *Output) Write(p []byte) (int, error) {
	if !o.preHashed {
		o.hasher.Update(p)
	}
	return o.file.Write(p)
}

// Discard closes the write without publishing it, removing any temp
// file left behind. Used when a caller abandons a write after an error.
func (o *Output) Discard() error {
	err := o.file.Close()
	if o.preHashed {
		os.Remove(hashPath(o.root, o.hash))
	} else {
		os.Remove(o.tmpPath)
	}
	return err
}

// Finish flushes and publishes the write, returning the artifact's
// content hash. For an incremental Output this computes the hash and
// atomically renames the temp file into place. If another writer already
// published under the same hash, the rename replaces that file with
// identical content; where rename refuses an existing target, the temp
// file is removed instead. For a
// pre-hashed Output (from Sink) it simply closes the already-in-place
// file.
func (o *Output) Finish() (Hash, error) {
	if o.preHashed {
		err := o.file.Close()
		return o.hash, err
	}

	if err := o.file.Close(); err != nil {
		os.Remove(o.tmpPath)
		return Hash{}, err
	}
	hash := o.hasher.Finalize()
	target := hashPath(o.root, hash)

	if err := os.Rename(o.tmpPath, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			os.Remove(o.tmpPath)
			return hash, nil
		}
		os.Remove(o.tmpPath)
		return Hash{}, fmt.Errorf("store: publish %s: %w", target, err)
	}
	return hash, nil
}

// Entry is one record of a group manifest: a sink's hash at the sample
// offset it starts playing.
type Entry struct {
	Offset uint64
	Hash   Hash
}

const entrySize = 8 + len(Hash{})

// WriteGroup publishes a group manifest listing entries in the order
// given, a 40-byte-record sequence of (sample_offset_be, hash). If an
// artifact already exists under hash the write is skipped (another
// writer already published the same group).
func (d *Directory) WriteGroup(hash Hash, entries []Entry) error {
	path := hashPath(d.root, hash)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, entrySize)
	for _, e := range entries {
		binary.BigEndian.PutUint64(buf[:8], e.Offset)
		copy(buf[8:], e.Hash[:])
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("store: write group %s: %w", path, err)
		}
	}
	return nil
}

// GroupReader decodes a group manifest's fixed 40-byte records.
type GroupReader struct {
	r io.ReadCloser
}

// OpenGroup opens the group manifest stored under hash.
func (d *Directory) OpenGroup(hash Hash) (*GroupReader, error) {
	r, err := d.OpenRaw(hash)
	if err != nil {
		return nil, err
	}
	return &GroupReader{r: r}, nil
}

// Next decodes the next entry, returning ok=false at a clean EOF.
func (g *GroupReader) Next() (entry Entry, ok bool, err error) {
	buf := make([]byte, entrySize)
	if _, err := io.ReadFull(g.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	entry.Offset = binary.BigEndian.Uint64(buf[:8])
	copy(entry.Hash[:], buf[8:])
	return entry, true, nil
}

// Close releases the underlying file.
func (g *GroupReader) Close() error { return g.r.Close() }

// MidiEntry is one record of a MIDI group dump: a 3-byte MIDI message at
// the sample offset it fires.
type MidiEntry struct {
	Offset uint64
	Status byte
	Data1  byte
	Data2  byte
}

const midiEntrySize = 8 + 1 + 1 + 1

// WriteMidiDump publishes a MIDI group dump: a sequence of
// (sample_offset_be, status, data1, data2) records. Like WriteGroup, a
// write is skipped if an artifact already exists under hash.
func (d *Directory) WriteMidiDump(hash Hash, entries []MidiEntry) error {
	path := hashPath(d.root, hash)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, midiEntrySize)
	for _, e := range entries {
		binary.BigEndian.PutUint64(buf[:8], e.Offset)
		buf[8], buf[9], buf[10] = e.Status, e.Data1, e.Data2
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("store: write midi dump %s: %w", path, err)
		}
	}
	return nil
}

// MidiDumpReader decodes a MIDI group dump's fixed 11-byte records.
type MidiDumpReader struct {
	r io.ReadCloser
}

// OpenMidiDump opens the MIDI group dump stored under hash.
func (d *Directory) OpenMidiDump(hash Hash) (*MidiDumpReader, error) {
	r, err := d.OpenRaw(hash)
	if err != nil {
		return nil, err
	}
	return &MidiDumpReader{r: r}, nil
}

// Next decodes the next MIDI entry, returning ok=false at a clean EOF.
func (m *MidiDumpReader) Next() (entry MidiEntry, ok bool, err error) {
	buf := make([]byte, midiEntrySize)
	if _, err := io.ReadFull(m.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return MidiEntry{}, false, nil
		}
		return MidiEntry{}, false, err
	}
	entry.Offset = binary.BigEndian.Uint64(buf[:8])
	entry.Status, entry.Data1, entry.Data2 = buf[8], buf[9], buf[10]
	return entry, true, nil
}

// Close releases the underlying file.
func (m *MidiDumpReader) Close() error { return m.r.Close() }
