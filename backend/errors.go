package backend

import (
	"errors"
	"fmt"
)

// Canonical error kinds raised at the Store/Backend boundary (spec.md §7).
// Backends raise these directly; the Store does not translate them, except
// to wrap permission-overlay rejections.
var (
	// ErrObjectNotFound is raised when load/info/delete/move's target is
	// missing in both its live and soft-deleted (.del) form.
	ErrObjectNotFound = errors.New("borgstore: object not found")

	// ErrObjectAlreadyExists is raised by store() without overwrite, or by
	// move() into an existing name.
	ErrObjectAlreadyExists = errors.New("borgstore: object already exists")

	// ErrBackendAlreadyExists is raised by create() on a non-empty root.
	ErrBackendAlreadyExists = errors.New("borgstore: backend already exists")

	// ErrBackendDoesNotExist is raised by open() on an uninitialized or
	// missing root.
	ErrBackendDoesNotExist = errors.New("borgstore: backend does not exist")

	// ErrPermissionDenied is raised when the permission overlay rejects an
	// operation.
	ErrPermissionDenied = errors.New("borgstore: permission denied")

	// ErrInvalidURL is raised when the URL dispatcher cannot parse or
	// resolve a store URL's scheme.
	ErrInvalidURL = errors.New("borgstore: invalid URL")

	// ErrInvalidKey is raised when a key violates the ASCII/forbidden-char
	// rules, or is non-hex under a namespace with nesting depth > 0.
	ErrInvalidKey = errors.New("borgstore: invalid key")

	// ErrBackendError is the catch-all for transport failures (network,
	// EIO); retryable at the caller's discretion.
	ErrBackendError = errors.New("borgstore: backend error")
)

// Error wraps a canonical error kind with the operation and logical name
// that triggered it, in the style of the teacher's fmt.Errorf("...: %w", err)
// habit, but as a structured type so callers can inspect Op/Name without
// string-parsing the message.
type Error struct {
	Op   string // operation name: "load", "store", "move", ...
	Name string // logical or backend name the operation targeted
	Kind error  // one of the Err* sentinels above
	Err  error  // underlying cause, if any (e.g. a wrapped os.PathError)
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err != e.Kind {
		return fmt.Sprintf("borgstore: %s %s: %v: %v", e.Op, e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("borgstore: %s %s: %v", e.Op, e.Name, e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is reports whether target matches this error's canonical kind, so that
// errors.Is(err, ErrObjectNotFound) works through the wrapper.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// WrapErr builds an *Error for op/name around a canonical kind, preserving
// the low-level cause (if any) for errors.Unwrap. Backends use this to
// raise canonical kinds without constructing *Error by hand.
func WrapErr(op, name string, kind, cause error) error {
	return &Error{Op: op, Name: name, Kind: kind, Err: cause}
}
