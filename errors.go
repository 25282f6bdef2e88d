package borgstore

import "github.com/borgbackup/borgstore/backend"

// Canonical error kinds raised at the Store/Backend boundary (spec.md §7).
// These are aliases of backend.Err*: backends raise them directly (they
// live in the leaf backend package to avoid an import cycle with the
// backend/* driver packages), and the Store does not translate them,
// except to wrap permission-overlay rejections.
var (
	ErrObjectNotFound       = backend.ErrObjectNotFound
	ErrObjectAlreadyExists  = backend.ErrObjectAlreadyExists
	ErrBackendAlreadyExists = backend.ErrBackendAlreadyExists
	ErrBackendDoesNotExist  = backend.ErrBackendDoesNotExist
	ErrPermissionDenied     = backend.ErrPermissionDenied
	ErrInvalidURL           = backend.ErrInvalidURL
	ErrInvalidKey           = backend.ErrInvalidKey
	ErrBackendError         = backend.ErrBackendError
)

// Error is an alias of backend.Error; see its doc for Op/Name/Kind/Err.
type Error = backend.Error

// wrapErr is a package-local convenience alias of backend.WrapErr.
func wrapErr(op, name string, kind, cause error) error {
	return backend.WrapErr(op, name, kind, cause)
}
