package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps every collection in one JSON document on disk:
//
//	{"butterflies": [...], "users": [...], "scores": [...]}
//
// The whole document is held in memory and rewritten atomically (temporary
// file, fsync, rename) on every append.
type FileBackend struct {
	path string

	mu     sync.RWMutex
	doc    map[string][]Record
	closed bool
}

// OpenFile loads the document at path, creating an empty one when the file
// does not exist yet.
func OpenFile(path string) (*FileBackend, error) {
	b := &FileBackend{
		path: path,
		doc:  emptyDocument(),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := b.write(b.doc); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		return b, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b.doc = doc
	return b, nil
}

// Path returns the document location.
func (b *FileBackend) Path() string {
	return b.path
}

// Append adds record to collection and rewrites the document. The in-memory
// state only changes once the write has succeeded.
func (b *FileBackend) Append(ctx context.Context, collection string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	id := record.ID()
	for _, r := range b.doc[collection] {
		if r.ID() == id {
			return ErrAlreadyExists
		}
	}

	next := make(map[string][]Record, len(b.doc))
	for k, v := range b.doc {
		next[k] = v
	}
	existing := b.doc[collection]
	grown := make([]Record, len(existing), len(existing)+1)
	copy(grown, existing)
	next[collection] = append(grown, record.Clone())

	if err := b.write(next); err != nil {
		return err
	}
	b.doc = next
	return nil
}

// Scan returns the records of collection in insertion order.
func (b *FileBackend) Scan(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}
	records := b.doc[collection]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}

// Close marks the backend closed. Every append is already on disk.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *FileBackend) write(doc map[string][]Record) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

func emptyDocument() map[string][]Record {
	doc := make(map[string][]Record, len(Collections))
	for _, c := range Collections {
		doc[c] = []Record{}
	}
	return doc
}

// DecodeDocument parses a {"butterflies":[...],"users":[...],"scores":[...]}
// document. Missing collections decode as empty; unknown top-level keys are
// rejected. Numbers keep their literal form (json.Number).
func DecodeDocument(data []byte) (map[string][]Record, error) {
	doc := emptyDocument()
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var raw map[string][]Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	for name, records := range raw {
		if !IsCollection(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
		}
		if records == nil {
			records = []Record{}
		}
		doc[name] = records
	}
	return doc, nil
}

// EncodeDocument renders doc with every collection present.
func EncodeDocument(doc map[string][]Record) ([]byte, error) {
	full := emptyDocument()
	for name, records := range doc {
		if records != nil {
			full[name] = records
		}
	}
	return json.MarshalIndent(full, "", "  ")
}
