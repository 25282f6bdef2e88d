package borgstore

// MultiStore is the extension point left for composing multiple Stores,
// replacing the withdrawn "MStore" façade (spec.md §9 "Historical
// multi-backend façade"). The original MStore distributed and replicated
// objects across backends; that feature is gone and deliberately not
// reintroduced here. What remains is a narrow, write-all/read-first
// composition that callers can build on without borgstore attempting to
// guess intent about redundancy, consistency, or failover policy:
//
//	type MultiStore struct {
//		stores []*Store
//	}
//
//	func (m *MultiStore) Store(ctx context.Context, name string, value []byte) error {
//		// write-all: attempt on every store, return the first error
//	}
//
//	func (m *MultiStore) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
//		// read-first: return the first store's successful result
//	}
//
// This type is intentionally not implemented. A caller needing multi-store
// composition should write it against the exported Store API above; doing
// so here would reintroduce redundancy/distribution policy this store does
// not want to own (spec.md §1 Non-goals).
