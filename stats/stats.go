// Package stats implements the stats & throttle wrapper (spec.md §4.6): a
// Backend decorator that counts calls, timings and byte volume, optionally
// emulates added latency/bandwidth, and logs each call at DEBUG level. It
// composes with any inner Backend. The permission overlay is not part of
// this chain: the Store checks it before calling the wrapped Backend.
package stats

import (
	"context"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/borgbackup/borgstore/backend"
	"github.com/prometheus/client_golang/prometheus"
)

// DebugLogFunc receives one record per wrapped call, matching spec.md §6's
// logging contract: operation, logical/backend name, byte count (0 if not
// meaningful), elapsed seconds.
type DebugLogFunc func(op, name string, bytes int64, seconds float64)

// Option configures a Backend at Wrap time.
type Option func(*Backend)

// WithDebugLog installs a callback invoked after every wrapped operation.
func WithDebugLog(fn DebugLogFunc) Option {
	return func(b *Backend) { b.debugLog = fn }
}

// WithLatency overrides BORGSTORE_LATENCY (microseconds per call).
func WithLatency(d time.Duration) Option {
	return func(b *Backend) { b.latency = d }
}

// WithBandwidth overrides BORGSTORE_BANDWIDTH (bits per second).
func WithBandwidth(bitsPerSecond int64) Option {
	return func(b *Backend) { b.bandwidth = bitsPerSecond }
}

// opCounter holds the per-operation counters in Counters.
type opCounter struct {
	calls   uint64
	seconds uint64 // nanoseconds, accumulated
	bytesIn uint64
	bytesOut uint64
}

// Counters is an immutable snapshot of a Backend's accumulated statistics.
type Counters struct {
	PerOp       map[string]OpCounters
	OpenClose   uint64
}

// OpCounters is one operation's accumulated counters.
type OpCounters struct {
	Calls    uint64
	Seconds  float64
	BytesIn  uint64
	BytesOut uint64
}

// Backend wraps an inner backend.Backend with stats collection and optional
// latency/bandwidth emulation. It implements backend.Backend itself, so it
// composes transparently with the rest of the chain, and
// prometheus.Collector, so it can be registered directly with a registry.
type Backend struct {
	inner backend.Backend

	latency   time.Duration
	bandwidth int64 // bits/sec

	debugLog DebugLogFunc

	mu      sync.Mutex
	counts  map[string]*opCounter
	opens   uint64
	closes  uint64
}

// Wrap decorates inner with stats collection. Latency/bandwidth emulation
// default to the BORGSTORE_LATENCY (microseconds)/BORGSTORE_BANDWIDTH
// (bits/sec) environment variables unless overridden by options.
func Wrap(inner backend.Backend, opts ...Option) *Backend {
	b := &Backend{
		inner:     inner,
		latency:   latencyFromEnv(),
		bandwidth: bandwidthFromEnv(),
		counts:    make(map[string]*opCounter),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func latencyFromEnv() time.Duration {
	v := os.Getenv("BORGSTORE_LATENCY")
	if v == "" {
		return 0
	}
	us, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(us) * time.Microsecond
}

func bandwidthFromEnv() int64 {
	v := os.Getenv("BORGSTORE_BANDWIDTH")
	if v == "" {
		return 0
	}
	bps, err := strconv.ParseUint(v, 10, 63)
	if err != nil {
		return 0
	}
	return int64(bps)
}

// Snapshot returns a point-in-time copy of the accumulated counters.
func (b *Backend) Snapshot() Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := Counters{PerOp: make(map[string]OpCounters, len(b.counts)), OpenClose: b.opens + b.closes}
	for op, c := range b.counts {
		out.PerOp[op] = OpCounters{
			Calls:    atomic.LoadUint64(&c.calls),
			Seconds:  time.Duration(atomic.LoadUint64(&c.seconds)).Seconds(),
			BytesIn:  atomic.LoadUint64(&c.bytesIn),
			BytesOut: atomic.LoadUint64(&c.bytesOut),
		}
	}
	return out
}

func (b *Backend) counter(op string) *opCounter {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.counts[op]
	if !ok {
		c = &opCounter{}
		b.counts[op] = c
	}
	return c
}

// record times a call, applies latency/bandwidth emulation, and logs it.
// bytesIn/bytesOut are the data volumes moved by this call (0 if N/A).
func (b *Backend) record(op, name string, bytesIn, bytesOut int64, elapsed time.Duration) {
	transferred := bytesIn + bytesOut

	if b.latency > 0 {
		time.Sleep(b.latency)
		elapsed += b.latency
	}
	if b.bandwidth > 0 && transferred > 0 {
		wait := time.Duration(float64(transferred) * 8 / float64(b.bandwidth) * float64(time.Second))
		time.Sleep(wait)
		elapsed += wait
	}

	c := b.counter(op)
	atomic.AddUint64(&c.calls, 1)
	atomic.AddUint64(&c.seconds, uint64(elapsed))
	atomic.AddUint64(&c.bytesIn, uint64(bytesIn))
	atomic.AddUint64(&c.bytesOut, uint64(bytesOut))

	if b.debugLog != nil {
		b.debugLog(op, name, transferred, elapsed.Seconds())
	}
}

func (b *Backend) String() string { return b.inner.String() }

func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	start := time.Now()
	err := b.inner.Create(ctx, precreateDirs)
	b.record("create", "", 0, 0, time.Since(start))
	return err
}

func (b *Backend) Open(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Open(ctx)
	atomic.AddUint64(&b.opens, 1)
	b.record("open", "", 0, 0, time.Since(start))
	return err
}

func (b *Backend) Close(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Close(ctx)
	atomic.AddUint64(&b.closes, 1)
	b.record("close", "", 0, 0, time.Since(start))
	return err
}

func (b *Backend) Destroy(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Destroy(ctx)
	b.record("destroy", "", 0, 0, time.Since(start))
	return err
}

func (b *Backend) Mkdir(ctx context.Context, name string) error {
	start := time.Now()
	err := b.inner.Mkdir(ctx, name)
	b.record("mkdir", name, 0, 0, time.Since(start))
	return err
}

func (b *Backend) Rmdir(ctx context.Context, name string) error {
	start := time.Now()
	err := b.inner.Rmdir(ctx, name)
	b.record("rmdir", name, 0, 0, time.Since(start))
	return err
}

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	start := time.Now()
	info, err := b.inner.Info(ctx, name)
	b.record("info", name, 0, 0, time.Since(start))
	return info, err
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	start := time.Now()
	data, err := b.inner.Load(ctx, name, offset, size)
	b.record("load", name, 0, int64(len(data)), time.Since(start))
	return data, err
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	start := time.Now()
	err := b.inner.Store(ctx, name, value)
	b.record("store", name, int64(len(value)), 0, time.Since(start))
	return err
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := b.inner.Delete(ctx, name)
	b.record("delete", name, 0, 0, time.Since(start))
	return err
}

func (b *Backend) Move(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := b.inner.Move(ctx, src, dst)
	b.record("move", src+" -> "+dst, 0, 0, time.Since(start))
	return err
}

func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	start := time.Now()
	entries, err := b.inner.List(ctx, name)
	b.record("list", name, 0, 0, time.Since(start))
	return entries, err
}

// Describe implements prometheus.Collector.
func (b *Backend) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(b, ch)
}

// Collect implements prometheus.Collector, exposing per-operation call
// counts, cumulative seconds and byte volumes as counters.
func (b *Backend) Collect(ch chan<- prometheus.Metric) {
	snap := b.Snapshot()
	callsDesc := prometheus.NewDesc("borgstore_backend_calls_total", "Total calls per operation.", []string{"op"}, nil)
	secondsDesc := prometheus.NewDesc("borgstore_backend_seconds_total", "Cumulative wall time per operation.", []string{"op"}, nil)
	bytesInDesc := prometheus.NewDesc("borgstore_backend_bytes_in_total", "Cumulative bytes written per operation.", []string{"op"}, nil)
	bytesOutDesc := prometheus.NewDesc("borgstore_backend_bytes_out_total", "Cumulative bytes read per operation.", []string{"op"}, nil)

	for op, c := range snap.PerOp {
		ch <- prometheus.MustNewConstMetric(callsDesc, prometheus.CounterValue, float64(c.Calls), op)
		ch <- prometheus.MustNewConstMetric(secondsDesc, prometheus.CounterValue, c.Seconds, op)
		ch <- prometheus.MustNewConstMetric(bytesInDesc, prometheus.CounterValue, float64(c.BytesIn), op)
		ch <- prometheus.MustNewConstMetric(bytesOutDesc, prometheus.CounterValue, float64(c.BytesOut), op)
	}
}
