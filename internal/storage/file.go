package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File keeps every key in one JSON document. Values must be valid JSON.
// Writes go to a temp file in the same directory and are renamed into place.
type File struct {
	path string

	mu          sync.Mutex
	lastWritten []byte
}

// NewFile returns a backend for the document at path. The file is created on first Set.
func NewFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file: empty path")
	}
	return &File{path: filepath.Clean(path)}, nil
}

// Path returns the document path.
func (f *File) Path() string { return f.path }

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

func (f *File) Set(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("file: value for %s is not JSON", k)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		doc[k] = json.RawMessage(cloneBytes(v))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return err
	}
	f.lastWritten = data
	return nil
}

func (f *File) Close() error { return nil }

// read loads the document. A missing file is an empty document.
func (f *File) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file: decode %s: %w", f.path, err)
	}
	return doc, nil
}

// changedExternally reports whether the document differs from the last write by this process.
func (f *File) changedExternally() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return !errors.Is(err, os.ErrNotExist)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !bytes.Equal(data, f.lastWritten)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
