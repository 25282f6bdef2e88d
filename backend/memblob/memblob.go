// Package memblob is an in-memory Backend used only by this module's own
// tests, so Store-layer behavior can be exercised without touching a real
// filesystem. It is not reachable through any store URL scheme.
package memblob

import (
	"context"
	"strings"
	"sync"

	"github.com/borgbackup/borgstore/backend"
)

// Backend is a process-local, map-backed Backend.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	created bool
	opened  bool
}

// New constructs an empty memblob backend.
func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

func (b *Backend) String() string { return "memblob://" }

func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.created && len(b.objects) > 0 {
		return backend.WrapErr("create", "", backend.ErrBackendAlreadyExists, nil)
	}
	b.created = true
	return nil
}

func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.created {
		return backend.WrapErr("open", "", backend.ErrBackendDoesNotExist, nil)
	}
	b.opened = true
	return nil
}

func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = false
	return nil
}

func (b *Backend) Destroy(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects = make(map[string][]byte)
	b.created = false
	return nil
}

func (b *Backend) Mkdir(ctx context.Context, name string) error { return nil }
func (b *Backend) Rmdir(ctx context.Context, name string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.hasPrefixLocked(name) {
		return backend.WrapErr("rmdir", name, backend.ErrBackendError, nil)
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.objects[name]; ok {
		return backend.Info{Exists: true, Size: int64(len(v))}, nil
	}
	if b.hasPrefixLocked(name) {
		return backend.Info{Exists: true, Directory: true}, nil
	}
	return backend.Info{}, nil
}

func (b *Backend) hasPrefixLocked(name string) bool {
	prefix := name
	if prefix != "" {
		prefix += "/"
	}
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.objects[name]
	if !ok {
		return nil, backend.WrapErr("load", name, backend.ErrObjectNotFound, nil)
	}
	if offset < 0 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, nil)
	}
	if offset > int64(len(v)) {
		offset = int64(len(v))
	}
	v = v[offset:]
	if size == backend.ReadToEOF || size >= int64(len(v)) {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	out := make([]byte, size)
	copy(out, v[:size])
	return out, nil
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	b.objects[name] = cp
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[name]; !ok {
		return backend.WrapErr("delete", name, backend.ErrObjectNotFound, nil)
	}
	delete(b.objects, name)
	return nil
}

func (b *Backend) Move(ctx context.Context, src, dst string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.objects[src]
	if !ok {
		return backend.WrapErr("move", src, backend.ErrObjectNotFound, nil)
	}
	if _, exists := b.objects[dst]; exists {
		return backend.WrapErr("move", dst, backend.ErrObjectAlreadyExists, nil)
	}
	delete(b.objects, src)
	b.objects[dst] = v
	return nil
}

func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	prefix := name
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var out []backend.ListEntry
	for k, v := range b.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dirName := rest[:idx]
			if !seen[dirName] {
				seen[dirName] = true
				out = append(out, backend.ListEntry{Name: dirName, Directory: true})
			}
			continue
		}
		out = append(out, backend.ListEntry{Name: rest, Size: int64(len(v))})
	}
	return out, nil
}
