package borgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/borgbackup/borgstore/backend"
	"github.com/borgbackup/borgstore/internal/permission"
	"github.com/borgbackup/borgstore/stats"
)

// MoveOp selects which transition Store.Move performs; exactly one field
// combination is legal per call (spec.md §4.5).
type MoveOp struct {
	Dst         string // plain rename target; mutually exclusive with the below
	Delete      bool   // soft-delete: append ".del" to the live name
	Undelete    bool   // strip ".del" from the soft-deleted name
	ChangeLevel bool   // re-nest to the namespace's current configured depth
}

// Store is the high-level namespaced key/value API (spec.md §4.5). It owns
// exactly one Backend and the namespace nesting configuration for it; it
// performs no locking of its own (spec.md §5 "Concurrency & Resource
// Model") and never translates backend errors except to wrap permission
// rejections.
type Store struct {
	raw    backend.Backend // the backend as constructed, pre-stats
	be     backend.Backend // the backend actually called: raw, or stats.Wrap(raw)
	levels Levels
	perms  *permission.Checker
	logger Logger
	sw     *stats.Backend // non-nil unless WithoutStats
}

// NewStore constructs a Store over the backend named by rawURL (spec.md
// §4.2), applying opts. It does not call Backend.Open; callers do that
// explicitly via Store.Open so that Create/Open/Close stay under caller
// control, as spec.md §4.5 requires.
func NewStore(rawURL string, levels Levels, opts ...Option) (*Store, error) {
	be, err := NewBackend(rawURL)
	if err != nil {
		return nil, err
	}
	return newStoreWithBackend(be, levels, opts...)
}

// NewStoreWithBackend is like NewStore but takes an already-constructed
// Backend, mainly for tests (memblob) and callers that built a custom
// driver against the Backend interface directly.
func NewStoreWithBackend(be backend.Backend, levels Levels, opts ...Option) (*Store, error) {
	return newStoreWithBackend(be, levels, opts...)
}

func newStoreWithBackend(be backend.Backend, levels Levels, opts ...Option) (*Store, error) {
	if err := levels.Validate(); err != nil {
		return nil, err
	}

	options := defaultStoreOptions()
	for _, opt := range opts {
		opt(options)
	}

	s := &Store{
		raw:    be,
		levels: levels,
		perms:  permission.New(options.permissions),
		logger: options.logger,
	}

	if !options.noStats {
		var statsOpts []stats.Option
		if options.latency != 0 {
			statsOpts = append(statsOpts, stats.WithLatency(options.latency))
		}
		if options.bandwidth != 0 {
			statsOpts = append(statsOpts, stats.WithBandwidth(options.bandwidth))
		}
		statsOpts = append(statsOpts, stats.WithDebugLog(s.logDebug))
		s.sw = stats.Wrap(be, statsOpts...)
		s.be = s.sw
	} else {
		s.be = be
	}

	return s, nil
}

// Stats returns the accumulated call/timing/byte counters, or the zero
// value if the store was constructed with WithoutStats.
func (s *Store) Stats() stats.Counters {
	if s.sw == nil {
		return stats.Counters{}
	}
	return s.sw.Snapshot()
}

func (s *Store) logDebug(op, name string, bytesTransferred int64, seconds float64) {
	s.logger.Debug(op,
		Field{Key: "name", Value: name},
		Field{Key: "bytes", Value: bytesTransferred},
		Field{Key: "seconds", Value: seconds},
	)
}

// precreateDirList expands the namespaces configured with PrecreateDirs
// into the set of two-hex-char sharding directories their depth implies,
// one namespace-prefixed path per deepest-level directory (e.g.
// "data/00/ff" for depth 2). Intermediate levels are not listed on their
// own; they are the parents of the listed paths.
func (s *Store) precreateDirList() []string {
	var dirs []string
	for ns, cfg := range s.levels {
		if !cfg.PrecreateDirs || cfg.Depth == 0 {
			continue
		}
		prefixes := []string{ns}
		for level := 0; level < cfg.Depth; level++ {
			var next []string
			for _, p := range prefixes {
				for _, h := range hexDigitPairs() {
					next = append(next, p+"/"+h)
				}
			}
			prefixes = next
		}
		dirs = append(dirs, prefixes...)
	}
	return dirs
}

var hexDigitPairsCache []string

// hexDigitPairs returns the 256 two-hex-char strings "00".."ff", used to
// enumerate sharding directories for precreation.
func hexDigitPairs() []string {
	if hexDigitPairsCache != nil {
		return hexDigitPairsCache
	}
	const digits = "0123456789abcdef"
	out := make([]string, 0, 256)
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			out = append(out, string([]byte{digits[i], digits[j]}))
		}
	}
	hexDigitPairsCache = out
	return out
}

// Create initializes the backend's storage root (spec.md §4.5 "create()").
// It fails ErrBackendAlreadyExists on a non-empty existing root.
func (s *Store) Create(ctx context.Context) error {
	if err := s.perms.Allow(permission.OpCreate, ""); err != nil {
		return err
	}
	return s.be.Create(ctx, s.precreateDirList())
}

// Destroy removes the store root recursively.
func (s *Store) Destroy(ctx context.Context) error {
	if err := s.perms.Allow(permission.OpDestroy, ""); err != nil {
		return err
	}
	return s.be.Destroy(ctx)
}

// Open acquires the backend's connection/session resources. Safe to call
// multiple times.
func (s *Store) Open(ctx context.Context) error {
	return s.be.Open(ctx)
}

// Close releases the backend's resources. Idempotent.
func (s *Store) Close(ctx context.Context) error {
	return s.be.Close(ctx)
}

// splitLogical splits a "namespace/key" logical name.
func splitLogical(name string) (namespace, key string) {
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// Store writes value at the logical name (namespace/key), per spec.md
// §4.5 "store(name, value)". New objects require permission "w"; existing
// objects require "W" (ObjectAlreadyExists if absent and overwrite not
// attempted is the caller's concern — the Store enforces the permission
// side, and if the live name already exists, the write proceeds as an
// overwrite rather than failing, since storage backends perform an
// unconditional atomic write; disallowing overwrite is a permission
// concern, not an existence concern, per the C3 table).
func (s *Store) Store(ctx context.Context, name string, value []byte) error {
	namespace, key := splitLogical(name)
	physical, err := transform(s.levels, namespace, key, false)
	if err != nil {
		return err
	}

	info, err := s.be.Info(ctx, physical)
	if err != nil {
		return err
	}
	op := permission.OpStoreNew
	if info.Exists {
		op = permission.OpStoreOverwrite
	}
	if err := s.perms.Allow(op, name); err != nil {
		return err
	}
	return s.be.Store(ctx, physical, value)
}

// Load returns value bytes for name, trying the live form then the
// soft-deleted form (spec.md §4.5 "load()"). offset/size are forwarded to
// the backend unchanged; size == backend.ReadToEOF reads through EOF.
func (s *Store) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	if offset < 0 {
		return nil, wrapErr("load", name, ErrInvalidKey, nil)
	}
	if err := s.perms.Allow(permission.OpLoad, name); err != nil {
		return nil, err
	}
	namespace, key := splitLogical(name)
	if err := validateKey(key, maxDepth(s.levels[namespace])); err != nil {
		return nil, err
	}

	for _, depth := range s.levels.candidateDepths(namespace) {
		live := transformAt(namespace, key, depth, false)
		data, err := s.be.Load(ctx, live, offset, size)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}

		deleted := transformAt(namespace, key, depth, true)
		data, err = s.be.Load(ctx, deleted, offset, size)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
	}
	return nil, wrapErr("load", name, ErrObjectNotFound, nil)
}

// ObjectInfo is Store.Info's result: existence, size, and whether only the
// soft-deleted form exists (spec.md §4.5 "info() -> {exists, size,
// deleted}"). It is distinct from Info/backend.Info, which describes a
// single physical name rather than a logical live-or-deleted object.
type ObjectInfo struct {
	Exists  bool
	Size    int64
	Deleted bool
}

// Info reports existence, size and deleted-ness for name (spec.md §4.5
// "info()"). Deleted is true iff only the ".del" form exists.
func (s *Store) Info(ctx context.Context, name string) (ObjectInfo, error) {
	if err := s.perms.Allow(permission.OpInfo, name); err != nil {
		return ObjectInfo{}, err
	}
	namespace, key := splitLogical(name)
	if err := validateKey(key, maxDepth(s.levels[namespace])); err != nil {
		return ObjectInfo{}, err
	}

	for _, depth := range s.levels.candidateDepths(namespace) {
		live := transformAt(namespace, key, depth, false)
		info, err := s.be.Info(ctx, live)
		if err != nil {
			return ObjectInfo{}, err
		}
		if info.Exists {
			return ObjectInfo{Exists: true, Size: info.Size}, nil
		}

		deleted := transformAt(namespace, key, depth, true)
		info, err = s.be.Info(ctx, deleted)
		if err != nil {
			return ObjectInfo{}, err
		}
		if info.Exists {
			return ObjectInfo{Exists: true, Size: info.Size, Deleted: true}, nil
		}
	}
	return ObjectInfo{}, nil
}

// Delete hard-removes name, trying the live form then the soft-deleted
// form (spec.md §4.5 "delete()"). ErrObjectNotFound if neither exists.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.perms.Allow(permission.OpDelete, name); err != nil {
		return err
	}
	namespace, key := splitLogical(name)
	if err := validateKey(key, maxDepth(s.levels[namespace])); err != nil {
		return err
	}

	for _, depth := range s.levels.candidateDepths(namespace) {
		live := transformAt(namespace, key, depth, false)
		err := s.be.Delete(ctx, live)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return err
		}

		deleted := transformAt(namespace, key, depth, true)
		err = s.be.Delete(ctx, deleted)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return err
		}
	}
	return wrapErr("delete", name, ErrObjectNotFound, nil)
}

// Move performs one of the transitions described by op on src (spec.md
// §4.5 "move()"): plain rename, soft-delete, undelete, or re-nest to the
// namespace's current depth. Exactly one of op's fields may be set.
func (s *Store) Move(ctx context.Context, src string, op MoveOp) error {
	namespace, key := splitLogical(src)
	cfg := s.levels[namespace]

	switch {
	case op.Dst != "":
		dstNamespace, dstKey := splitLogical(op.Dst)
		if dstNamespace != namespace {
			return wrapErr("move", src, ErrInvalidKey, nil)
		}
		if err := s.perms.Allow(permission.OpMoveSrc, src); err != nil {
			return err
		}
		if err := s.perms.Allow(permission.OpMoveDst, op.Dst); err != nil {
			return err
		}
		srcPhys, err := transform(s.levels, namespace, key, false)
		if err != nil {
			return err
		}
		dstPhys, err := transform(s.levels, dstNamespace, dstKey, false)
		if err != nil {
			return err
		}
		return s.be.Move(ctx, srcPhys, dstPhys)

	case op.Delete:
		if err := validateKey(key, cfg.Depth); err != nil {
			return err
		}
		if err := s.perms.Allow(permission.OpMoveSrc, src); err != nil {
			return err
		}
		live := transformAt(namespace, key, cfg.Depth, false)
		deleted := transformAt(namespace, key, cfg.Depth, true)
		return s.be.Move(ctx, live, deleted)

	case op.Undelete:
		if err := validateKey(key, cfg.Depth); err != nil {
			return err
		}
		if err := s.perms.Allow(permission.OpMoveSrc, src); err != nil {
			return err
		}
		live := transformAt(namespace, key, cfg.Depth, false)
		deleted := transformAt(namespace, key, cfg.Depth, true)
		return s.be.Move(ctx, deleted, live)

	case op.ChangeLevel:
		if err := validateKey(key, maxDepth(cfg)); err != nil {
			return err
		}
		if err := s.perms.Allow(permission.OpMoveSrc, src); err != nil {
			return err
		}
		for _, depth := range cfg.Historic {
			if depth == cfg.Depth {
				continue
			}
			oldName := transformAt(namespace, key, depth, false)
			newName := transformAt(namespace, key, cfg.Depth, false)
			if info, err := s.be.Info(ctx, oldName); err == nil && info.Exists {
				return s.be.Move(ctx, oldName, newName)
			}
		}
		return wrapErr("move", src, ErrObjectNotFound, nil)

	default:
		return wrapErr("move", src, ErrInvalidKey, nil)
	}
}

// List yields logical names (namespace/key) directly under namespace,
// descending sharding directories and filtering by the ".del" suffix
// according to deleted (spec.md §4.5 "list()"). Order is unspecified.
func (s *Store) List(ctx context.Context, namespace string, deleted bool) ([]string, error) {
	if err := s.perms.Allow(permission.OpList, namespace); err != nil {
		return nil, err
	}
	cfg := s.levels[namespace]

	var out []string
	var walk func(ctx context.Context, physicalDir string, depthRemaining int) error
	walk = func(ctx context.Context, physicalDir string, depthRemaining int) error {
		entries, err := s.be.List(ctx, physicalDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if depthRemaining > 0 {
				if e.Directory {
					if err := walk(ctx, physicalDir+"/"+e.Name, depthRemaining-1); err != nil {
						return err
					}
				}
				continue
			}
			if e.Directory {
				continue
			}
			key, isDeleted := inverse(e.Name)
			if isDeleted != deleted {
				continue
			}
			out = append(out, namespace+"/"+key)
		}
		return nil
	}

	if err := walk(ctx, namespace, cfg.Depth); err != nil {
		return nil, err
	}
	return out, nil
}
