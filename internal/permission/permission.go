// Package permission implements the prefix-based permission overlay
// (spec.md §4.3). It is consulted by Store against logical names
// (namespace/key) before a call reaches the backend chain — the overlay is
// defined in terms of Store-level operations ("create", "list", "store",
// ...), and Store's physical (sharded, possibly .del-suffixed) names don't
// preserve the namespace-prefix structure the overlay walks, so it lives
// here rather than as a Backend-wrapping decorator (Design Notes §9 still
// holds: it is a capability any Store can opt into, not something baked
// into one backend).
package permission

import (
	"strings"

	"github.com/borgbackup/borgstore/backend"
)

// Op identifies a Store-level operation for permission purposes.
type Op string

const (
	OpCreate         Op = "create"
	OpDestroy        Op = "destroy"
	OpMkdir          Op = "mkdir"
	OpRmdir          Op = "rmdir"
	OpList           Op = "list"
	OpInfo           Op = "info"
	OpLoad           Op = "load"
	OpStoreNew       Op = "store_new" // store() of a previously-absent name
	OpStoreOverwrite Op = "store_overwrite"
	OpDelete         Op = "delete"
	OpMoveSrc        Op = "move_src"
	OpMoveDst        Op = "move_dst"
)

// Checker evaluates the permission map for a given operation/name pair.
// A nil or empty Checker allows everything (spec.md: "absence of any
// mapping means allow all").
type Checker struct {
	perms map[string]string
}

// New builds a Checker from a path-prefix -> permission-letters map.
func New(prefixPerms map[string]string) *Checker {
	if len(prefixPerms) == 0 {
		return nil
	}
	c := &Checker{perms: make(map[string]string, len(prefixPerms))}
	for k, v := range prefixPerms {
		c.perms[k] = v
	}
	return c
}

// lettersFor walks ancestors of name (splitting on "/") upward to "",
// returning the nearest configured entry's letters. Absence of any
// matching prefix means "allow all" (empty check never denies).
func (c *Checker) lettersFor(name string) (string, bool) {
	cur := name
	for {
		if letters, ok := c.perms[cur]; ok {
			return letters, true
		}
		if cur == "" {
			return "", false
		}
		if idx := strings.LastIndex(cur, "/"); idx >= 0 {
			cur = cur[:idx]
		} else {
			cur = ""
		}
	}
}

func hasAny(letters string, want ...byte) bool {
	for _, w := range want {
		if strings.IndexByte(letters, w) >= 0 {
			return true
		}
	}
	return false
}

// Allow checks whether op is permitted on logical name. A nil Checker
// always allows.
func (c *Checker) Allow(op Op, name string) error {
	if c == nil {
		return nil
	}
	letters, found := c.lettersFor(name)
	if !found {
		return nil
	}

	var ok bool
	switch op {
	case OpCreate, OpMkdir:
		ok = hasAny(letters, 'w', 'W')
	case OpDestroy:
		ok = hasAny(letters, 'D')
	case OpRmdir:
		ok = hasAny(letters, 'w', 'D')
	case OpList:
		ok = hasAny(letters, 'l')
	case OpInfo:
		ok = hasAny(letters, 'l', 'r')
	case OpLoad:
		ok = hasAny(letters, 'r')
	case OpStoreNew:
		ok = hasAny(letters, 'w')
	case OpStoreOverwrite:
		ok = hasAny(letters, 'W')
	case OpDelete:
		ok = hasAny(letters, 'D')
	case OpMoveSrc:
		ok = hasAny(letters, 'D')
	case OpMoveDst:
		ok = hasAny(letters, 'w', 'W')
	default:
		ok = false
	}
	if !ok {
		return backend.WrapErr(string(op), name, backend.ErrPermissionDenied, nil)
	}
	return nil
}
