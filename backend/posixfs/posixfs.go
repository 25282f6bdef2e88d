// Package posixfs is the local-filesystem Backend driver (spec.md §4.2
// "file://"). It is built directly on the teacher's internal/fsutil
// helpers (atomic write, safe rename, directory listing) generalized
// from "namespace directory" to "arbitrary backend name".
package posixfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/borgbackup/borgstore/backend"
	"github.com/borgbackup/borgstore/internal/fsutil"
)

// Backend is a posixfs-backed borgstore.Backend rooted at a local directory.
type Backend struct {
	root   string
	opened bool
}

// New constructs a posixfs backend rooted at path. Relative paths are
// resolved against the working directory at construction time, since the
// backend may later run in a different directory than it was built in.
// The root is not touched until Create or Open is called.
func New(path string) *Backend {
	root := fsutil.CleanPath(path)
	if abs, err := fsutil.AbsPath(root); err == nil {
		root = abs
	}
	return &Backend{root: root}
}

func (b *Backend) full(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

func (b *Backend) String() string { return "file://" + filepath.ToSlash(b.root) }

// Create initializes the root directory. Per spec.md §4.1, an existing
// non-empty root is rejected; an existing empty root is fine.
func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	if fsutil.DirExists(b.root) {
		entries, err := os.ReadDir(b.root)
		if err != nil {
			return backend.WrapErr("create", b.root, backend.ErrBackendError, err)
		}
		if len(entries) > 0 {
			return backend.WrapErr("create", b.root, backend.ErrBackendAlreadyExists, nil)
		}
	}
	if err := fsutil.EnsureDir(b.root, 0755); err != nil {
		return backend.WrapErr("create", b.root, backend.ErrBackendError, err)
	}
	for _, d := range precreateDirs {
		if err := fsutil.EnsureDir(b.full(d), 0755); err != nil {
			return backend.WrapErr("create", d, backend.ErrBackendError, err)
		}
	}
	return nil
}

// Open verifies the root exists.
func (b *Backend) Open(ctx context.Context) error {
	if !fsutil.DirExists(b.root) {
		return backend.WrapErr("open", b.root, backend.ErrBackendDoesNotExist, nil)
	}
	b.opened = true
	return nil
}

// Close is idempotent; posixfs holds no external resources.
func (b *Backend) Close(ctx context.Context) error {
	b.opened = false
	return nil
}

// Destroy removes the storage root recursively.
func (b *Backend) Destroy(ctx context.Context) error {
	if err := fsutil.RemoveAll(b.root); err != nil {
		return backend.WrapErr("destroy", b.root, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Mkdir(ctx context.Context, name string) error {
	if err := fsutil.EnsureDir(b.full(name), 0755); err != nil {
		return backend.WrapErr("mkdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Rmdir(ctx context.Context, name string) error {
	if err := os.Remove(b.full(name)); err != nil {
		if os.IsNotExist(err) {
			return backend.WrapErr("rmdir", name, backend.ErrObjectNotFound, err)
		}
		return backend.WrapErr("rmdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	st, err := os.Stat(b.full(name))
	if err != nil {
		if os.IsNotExist(err) {
			return backend.Info{}, nil
		}
		return backend.Info{}, backend.WrapErr("info", name, backend.ErrBackendError, err)
	}
	return backend.Info{Exists: true, Size: st.Size(), Directory: st.IsDir()}, nil
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	if offset < 0 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, fmt.Errorf("negative offset"))
	}
	f, err := os.Open(b.full(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.WrapErr("load", name, backend.ErrObjectNotFound, err)
		}
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
		}
	}

	if size == backend.ReadToEOF {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
		}
		return data, nil
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	return buf[:n], nil
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	if err := fsutil.AtomicWriteFile(b.full(name), value, 0644); err != nil {
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	if err := os.Remove(b.full(name)); err != nil {
		if os.IsNotExist(err) {
			return backend.WrapErr("delete", name, backend.ErrObjectNotFound, err)
		}
		return backend.WrapErr("delete", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Move(ctx context.Context, src, dst string) error {
	srcPath, dstPath := b.full(src), b.full(dst)
	if !fsutil.FileExists(srcPath) && !fsutil.DirExists(srcPath) {
		return backend.WrapErr("move", src, backend.ErrObjectNotFound, nil)
	}
	if fsutil.FileExists(dstPath) || fsutil.DirExists(dstPath) {
		return backend.WrapErr("move", dst, backend.ErrObjectAlreadyExists, nil)
	}
	if err := fsutil.EnsureDir(filepath.Dir(dstPath), 0755); err != nil {
		return backend.WrapErr("move", dst, backend.ErrBackendError, err)
	}
	if err := fsutil.SafeRename(srcPath, dstPath); err != nil {
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	return nil
}

// List returns the direct children of name, skipping hidden entries
// (dotfiles left behind by editors or sync tools, e.g. ".DS_Store") that
// are never part of the logical keyspace the Store deals in.
func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	dir := b.full(name)
	if !fsutil.DirExists(dir) {
		return nil, nil
	}

	files, err := fsutil.ListFiles(dir)
	if err != nil {
		return nil, backend.WrapErr("list", name, backend.ErrBackendError, err)
	}
	dirs, err := fsutil.ListDirs(dir)
	if err != nil {
		return nil, backend.WrapErr("list", name, backend.ErrBackendError, err)
	}

	out := make([]backend.ListEntry, 0, len(files)+len(dirs))
	for _, f := range fsutil.FilterHidden(files) {
		out = append(out, backend.ListEntry{Name: filepath.Base(f), Size: fsutil.FileSize(f)})
	}
	for _, d := range fsutil.FilterHidden(dirs) {
		out = append(out, backend.ListEntry{Name: filepath.Base(d), Directory: true})
	}
	return out, nil
}

