package borgstore

import "github.com/borgbackup/borgstore/backend"

// Backend, Info, and ListEntry are aliases of the backend package's types,
// re-exported so callers implementing a custom driver (or just holding a
// handle to one) never need to import the leaf backend package by hand.
type (
	Backend   = backend.Backend
	Info      = backend.Info
	ListEntry = backend.ListEntry
)
