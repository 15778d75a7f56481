package storage

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Factory builds a backend from a DSN.
type Factory func(dsn string) (Backend, error)

var registry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// Register adds or replaces the factory for scheme.
func Register(scheme string, factory Factory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[scheme] = factory
}

func lookup(scheme string) (Factory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	f, ok := registry.factories[normalizeScheme(scheme)]
	return f, ok
}

// Open returns the backend selected by the DSN scheme:
// memory://, sqlite://<dir>, file://<path>, postgres://...
func Open(dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("storage: empty dsn")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse dsn: %w", err)
	}
	scheme := normalizeScheme(parsed.Scheme)
	if factory, ok := lookup(scheme); ok {
		return factory(dsn)
	}

	switch scheme {
	case "memory", "mem":
		return NewMemory(), nil
	case "sqlite":
		dir, err := dsnPath(parsed)
		if err != nil {
			return nil, err
		}
		return OpenSQLite(dir)
	case "file", "":
		if scheme == "" {
			return NewFile(dsn)
		}
		path, err := dsnPath(parsed)
		if err != nil {
			return nil, err
		}
		return NewFile(path)
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("storage: unsupported scheme %q", scheme)
	}
}

// dsnPath extracts a filesystem path from sqlite:// and file:// DSNs.
// Both sqlite:///abs/dir and sqlite://rel/dir are accepted.
func dsnPath(parsed *url.URL) (string, error) {
	path := parsed.Host + parsed.Path
	if path == "" {
		path = parsed.Opaque
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("storage: %s dsn has no path", parsed.Scheme)
	}
	return path, nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
