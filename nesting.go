package borgstore

import (
	"fmt"
	"strings"
)

// LevelConfig describes the hash-sharded nesting depth for one namespace
// (spec.md §3 "Levels configuration"). Depth is the depth new objects are
// written at; Historic lists depths the namespace was previously configured
// with, probed in order on a load/info/delete miss (Open Question (a) in
// SPEC_FULL.md). PrecreateDirs asks the backend to pre-create the sharding
// directory tree at Store.Create time.
type LevelConfig struct {
	Depth         int
	Historic      []int
	PrecreateDirs bool
}

// DefaultLevelConfig returns the zero-nesting configuration: depth 0, no
// historic fallback depths, no precreation. Suitable for namespaces small
// enough that a flat directory never becomes a scalability problem.
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{}
}

// Validate checks that cfg describes a usable nesting configuration:
// Depth and every Historic entry must be non-negative, and Historic must
// not duplicate Depth (candidateDepths already de-duplicates, but a
// caller-visible config shouldn't carry redundant entries).
func (cfg LevelConfig) Validate() error {
	if cfg.Depth < 0 {
		return fmt.Errorf("borgstore: nesting depth must be >= 0, got %d", cfg.Depth)
	}
	for _, h := range cfg.Historic {
		if h < 0 {
			return fmt.Errorf("borgstore: historic nesting depth must be >= 0, got %d", h)
		}
		if h == cfg.Depth {
			return fmt.Errorf("borgstore: historic depth %d duplicates current depth", h)
		}
	}
	return nil
}

// Validate checks every namespace's LevelConfig.
func (l Levels) Validate() error {
	for ns, cfg := range l {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("namespace %q: %w", ns, err)
		}
	}
	return nil
}

// Levels maps namespace name to its LevelConfig. The Store does not reject
// a namespace missing from it: such a namespace is handled as depth 0 with
// no historic depths. An entry for the empty namespace "" is permitted; its
// objects sit directly under the backend root, next to the other
// namespaces' directories, and Validate does not reject a Levels that has
// both "" and other namespaces.
type Levels map[string]LevelConfig

// candidateDepths returns the depths to probe for namespace ns, current
// depth first, then Historic in order, de-duplicated.
func (l Levels) candidateDepths(ns string) []int {
	cfg := l[ns]
	seen := map[int]bool{cfg.Depth: true}
	depths := []int{cfg.Depth}
	for _, h := range cfg.Historic {
		if !seen[h] {
			seen[h] = true
			depths = append(depths, h)
		}
	}
	return depths
}

// maxDepth returns the largest nesting depth cfg ever transforms a key at,
// across its current Depth and all Historic depths. Callers that transform
// a key at any of those depths must validate against maxDepth first, since
// transformAt slices the key up to 2*depth bytes without bounds-checking.
func maxDepth(cfg LevelConfig) int {
	m := cfg.Depth
	for _, h := range cfg.Historic {
		if h > m {
			m = h
		}
	}
	return m
}

// validKeyChars reports whether key contains only ASCII, non-whitespace,
// non-"/" characters and no "..".
func validKeyChars(key string) bool {
	if key == "" {
		return false
	}
	if strings.Contains(key, "..") {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c > 0x7e || c < 0x21 {
			// excludes space, control chars, and anything non-ASCII
			return false
		}
		if c == '/' {
			return false
		}
	}
	return true
}

// isHex reports whether s consists only of lowercase or uppercase hex digits.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// validateKey checks a key against spec.md §3's rules, additionally
// requiring, when depth > 0, that the whole key is hex digits and at least
// 2*depth characters long.
func validateKey(key string, depth int) error {
	if !validKeyChars(key) {
		return wrapErr("validateKey", key, ErrInvalidKey, nil)
	}
	if depth > 0 {
		n := 2 * depth
		if len(key) < n || !isHex(key) {
			return wrapErr("validateKey", key, ErrInvalidKey, nil)
		}
	}
	return nil
}

// transformAt composes the backend name for (namespace, key) at a specific
// nesting depth, optionally suffixed for the soft-deleted form. It does not
// validate the key; callers validate against the depth they intend to use.
func transformAt(namespace, key string, depth int, deleted bool) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte('/')
	if depth > 0 {
		for i := 0; i < depth; i++ {
			b.WriteString(key[2*i : 2*i+2])
			b.WriteByte('/')
		}
	}
	b.WriteString(key)
	if deleted {
		b.WriteString(delSuffix)
	}
	return b.String()
}

// transform is the C4 name transform: (namespace, key, flags) -> backend
// name, using the namespace's current configured depth. It validates the
// key first (spec.md §4.4 step 1).
func transform(levels Levels, namespace, key string, deleted bool) (string, error) {
	cfg := levels[namespace]
	if err := validateKey(key, cfg.Depth); err != nil {
		return "", err
	}
	return transformAt(namespace, key, cfg.Depth, deleted), nil
}

// inverse recovers the logical key from a backend leaf name and its parent
// namespace, stripping the ".del" suffix and ignoring sharding components.
// The leaf name itself (the final path component) is always the full,
// un-sharded key per spec.md §4.4, so no depth needs to be known here.
func inverse(leaf string) (key string, deleted bool) {
	if strings.HasSuffix(leaf, delSuffix) {
		return strings.TrimSuffix(leaf, delSuffix), true
	}
	return leaf, false
}

const delSuffix = ".del"
