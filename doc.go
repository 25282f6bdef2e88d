/*
Package borgstore is a namespaced key/value store that serves as the
storage primitive for a deduplicating backup tool. Callers write opaque
binary values under ASCII keys grouped by namespace; the store persists
them through one of several pluggable backends (a local POSIX filesystem,
an SFTP server, an S3-compatible object service, or an rclone-mediated
remote).

The store hides two concerns from callers and backend authors alike:
scalability of flat namespaces via transparent, per-namespace hash-sharded
directory nesting, and reversible deletion via a soft-delete naming
convention that can be enumerated and reversed without a side index.

Quick start:

	store, err := borgstore.NewStore("file:///var/lib/backup",
		borgstore.Levels{
			"data": {Depth: 3},
			"meta": {Depth: 0},
		})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close(ctx)

	if err := store.Open(ctx); err != nil {
		log.Fatal(err)
	}

	if err := store.Store(ctx, "data/0123456789abcdef", value); err != nil {
		log.Fatal(err)
	}

	got, err := store.Load(ctx, "data/0123456789abcdef", 0, borgstore.ReadToEOF)

Backends are never touched directly; they are selected by URL (see
NewBackend) and wrapped with the stats & throttle layer, and the Store
checks the permission overlay, if configured (see WithPermissions), before
each call. What the original design
called "MStore" — a façade over multiple backends for redundancy — has
been withdrawn; see the doc comment on this package's composition extension
point for what replaces it.
*/
package borgstore

import "github.com/borgbackup/borgstore/backend"

// ReadToEOF, passed as Store.Load's size argument, requests all bytes from
// offset through the end of the object.
const ReadToEOF = backend.ReadToEOF
