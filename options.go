package borgstore

import "time"

// Option configures a Store at construction time (NewStore,
// NewStoreWithBackend).
type Option func(*storeOptions)

// storeOptions holds the resolved configuration for Store construction.
type storeOptions struct {
	logger      Logger
	permissions map[string]string
	noStats     bool
	latency     time.Duration // overrides BORGSTORE_LATENCY when non-zero
	bandwidth   int64         // bits/sec, overrides BORGSTORE_BANDWIDTH when non-zero
}

func defaultStoreOptions() *storeOptions {
	return &storeOptions{logger: NewDefaultLogger()}
}

// WithLogger sets a custom logger for the store (see Logger).
func WithLogger(logger Logger) Option {
	return func(o *storeOptions) { o.logger = logger }
}

// WithPermissions installs the permission overlay (spec.md §4.3): a mapping
// from path-prefix to permission letters ("l", "r", "w", "W", "D", any
// combination). Absence of any matching prefix means "allow all".
func WithPermissions(prefixPerms map[string]string) Option {
	return func(o *storeOptions) { o.permissions = prefixPerms }
}

// WithoutStats disables the stats & throttle wrapper (C6). Latency and
// bandwidth emulation, and per-call counters, are unavailable when disabled.
func WithoutStats() Option {
	return func(o *storeOptions) { o.noStats = true }
}

// WithLatency overrides the BORGSTORE_LATENCY environment variable for this
// Store instance.
func WithLatency(d time.Duration) Option {
	return func(o *storeOptions) { o.latency = d }
}

// WithBandwidth overrides the BORGSTORE_BANDWIDTH environment variable (in
// bits per second) for this Store instance.
func WithBandwidth(bitsPerSecond int64) Option {
	return func(o *storeOptions) { o.bandwidth = bitsPerSecond }
}
