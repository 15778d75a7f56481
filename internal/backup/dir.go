package backup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirSink keeps backups as files in a directory.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &DirSink{dir: filepath.Clean(dir)}, nil
}

// Dir returns the backup directory.
func (s *DirSink) Dir() string { return s.dir }

func (s *DirSink) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Put writes data to a temp file and renames it into place.
func (s *DirSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.path(name)
	if err != nil {
		return err
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp file name: %w", err)
	}
	tempPath := filepath.Join(s.dir, "."+name+"."+hex.EncodeToString(randBytes)+".tmp")
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	file = nil

	// os.Rename follows a symlink at the destination
	if info, err := os.Lstat(dest); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("backup path is a symlink")
	}
	if err := os.Rename(tempPath, dest); err != nil {
		return fmt.Errorf("finalize backup: %w", err)
	}
	success = true
	return nil
}

// List returns the regular files in the directory, skipping temp files.
func (s *DirSink) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Read returns the contents of a backup. Symlinks are refused.
func (s *DirSink) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := openFileNoFollowRead(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
