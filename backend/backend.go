// Package backend defines the flat-name object contract every storage
// driver must satisfy (spec.md §4.1), plus the canonical error taxonomy
// (spec.md §7). It is a leaf package: concrete drivers (posixfs, sftp, s3,
// rclone, memblob) import it, and the root borgstore package re-exports its
// types as aliases so callers never need to import it directly.
package backend

import "context"

// Info is the cheap metadata probe result returned by Backend.Info and,
// with an added Deleted flag, by Store.Info.
type Info struct {
	Exists    bool
	Size      int64
	Directory bool
}

// ListEntry is one direct child returned by Backend.List, non-recursive.
type ListEntry struct {
	Name      string // leaf name, relative to the listed name
	Directory bool
	Size      int64
}

// ReadToEOF, passed as Backend.Load's size argument, requests all bytes
// from offset through the end of the object.
const ReadToEOF int64 = -1

// Backend is the minimal flat-name object contract every storage driver
// must satisfy (spec.md §4.1). Names passed to a Backend are already
// namespace-nested and possibly ".del"-suffixed by the Store; a Backend
// never interprets structure in a name beyond treating "/" as a path
// separator for Mkdir/Rmdir/List.
//
// A Backend has a lifecycle of {unopened -> open -> closed}. Open must be
// called before Load/Store/Delete/Move/List/Info/Mkdir/Rmdir; Close must be
// idempotent. Backends signal failure via the Err* sentinels in errors.go
// and MUST NOT leak driver-specific error types across the boundary.
type Backend interface {
	// Create initializes storage at the backend's root. It MUST fail with
	// ErrBackendAlreadyExists if the root exists and is non-empty; an
	// empty existing root is acceptable. precreateDirs lists sharding
	// directories as backend names (e.g. "data/00/ff"); backends that
	// support cheap directory pre-creation should create them.
	Create(ctx context.Context, precreateDirs []string) error

	// Open acquires connections/sessions/subprocesses. It MUST fail with
	// ErrBackendDoesNotExist if the root is missing or uninitialized.
	Open(ctx context.Context) error

	// Close releases resources. Repeated calls after the first are no-ops.
	Close(ctx context.Context) error

	// Destroy removes the storage root recursively.
	Destroy(ctx context.Context) error

	// Mkdir ensures an intermediate container exists (idempotent).
	Mkdir(ctx context.Context, name string) error

	// Rmdir removes an intermediate container. It MUST fail if the
	// container is non-empty.
	Rmdir(ctx context.Context, name string) error

	// Info returns cheap metadata for name. Exists is false, with the zero
	// value otherwise, if name does not exist.
	Info(ctx context.Context, name string) (Info, error)

	// Load returns the bytes of name in [offset, offset+size). size ==
	// ReadToEOF means "read through the end of the object"; size >= 0
	// requests exactly that many bytes, intersected with what is
	// available. Reading beyond EOF returns fewer bytes without error.
	// Returns ErrObjectNotFound if name does not exist.
	Load(ctx context.Context, name string, offset, size int64) ([]byte, error)

	// Store atomically writes value at name, replacing any prior content.
	// The Store layer is responsible for enforcing the w/W overwrite
	// distinction before calling Store; the Backend itself performs an
	// unconditional atomic write.
	Store(ctx context.Context, name string, value []byte) error

	// Delete hard-removes a single object. Returns ErrObjectNotFound if
	// name does not exist.
	Delete(ctx context.Context, name string) error

	// Move atomically renames src to dst within the backend. Returns
	// ErrObjectNotFound if src is missing, ErrObjectAlreadyExists if dst
	// exists (backends must reject overwrite).
	Move(ctx context.Context, src, dst string) error

	// List returns the direct, non-recursive children of name. Order is
	// unspecified.
	List(ctx context.Context, name string) ([]ListEntry, error)

	// String returns a short human-readable description of the backend
	// (its URL with credentials redacted), used in log output.
	String() string
}
