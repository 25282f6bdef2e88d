// Package rclone is the Backend driver for rclone remotes (spec.md §4.2
// "rclone:REMOTE:path"). rclone has no Go client SDK; its own documented
// integration path is to run `rclone rcd` and drive it over its JSON-RPC
// "rc" protocol with a plain HTTP client, which is what this package does.
package rclone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/borgbackup/borgstore/backend"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Backend drives one rclone remote through a private `rclone rcd` daemon.
type Backend struct {
	remote string // rclone remote name, e.g. "myb2"
	path   string // path within the remote

	mu      sync.Mutex
	cmd     *exec.Cmd
	addr    string
	token   string
	http    *http.Client
	started bool
}

// New constructs an rclone backend against remote:path. No process is
// spawned until Create/Open.
func New(remote, path string) *Backend {
	return &Backend{remote: remote, path: strings.Trim(path, "/")}
}

func (b *Backend) String() string { return "rclone:" + b.remote + ":" + b.path }

func (b *Backend) fsArg() string { return b.remote + ":" + b.path }

func (b *Backend) ensureStarted(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return backend.WrapErr("start", b.remote, backend.ErrBackendError, err)
	}
	addr := listener.Addr().String()
	listener.Close()

	token := uuid.NewString()
	bin := os.Getenv("RCLONE_BINARY")
	if bin == "" {
		bin = "rclone"
	}
	cmd := exec.CommandContext(ctx, bin, "rcd",
		"--rc-addr="+addr,
		"--rc-user=borgstore",
		"--rc-no-auth=false",
	)
	cmd.Env = append(os.Environ(), "RCLONE_RC_PASS="+token)
	if err := cmd.Start(); err != nil {
		return backend.WrapErr("start", b.remote, backend.ErrBackendError, fmt.Errorf("spawning rclone rcd: %w", err))
	}

	b.cmd = cmd
	b.addr = addr
	b.token = token
	b.http = &http.Client{Timeout: 30 * time.Second}
	b.started = true

	return b.waitReady(ctx)
}

// waitReady polls rclone's noop "core/version" call with a bounded backoff,
// since the daemon takes a moment to bind its listener after Start returns.
func (b *Backend) waitReady(ctx context.Context) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(func() error {
		_, err := b.callLocked(ctx, "core/version", nil)
		return err
	}, backoff.WithContext(policy, ctx))
}

// call issues one rc JSON-RPC request and decodes its JSON response.
func (b *Backend) call(ctx context.Context, path string, args map[string]any) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callLocked(ctx, path, args)
}

func (b *Backend) callLocked(ctx context.Context, path string, args map[string]any) (map[string]any, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+b.addr+"/"+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("borgstore", b.token)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rclone rc %s: %s: %s", path, resp.Status, string(data))
	}
	var out map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Backend) full(name string) string {
	if name == "" {
		return b.path
	}
	return strings.TrimSuffix(b.path, "/") + "/" + name
}

func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	if err := b.ensureStarted(ctx); err != nil {
		return err
	}
	if _, err := b.call(ctx, "operations/mkdir", map[string]any{"fs": b.remote + ":", "remote": b.path}); err != nil {
		return backend.WrapErr("create", b.fsArg(), backend.ErrBackendError, err)
	}
	for _, d := range precreateDirs {
		if _, err := b.call(ctx, "operations/mkdir", map[string]any{"fs": b.remote + ":", "remote": b.full(d)}); err != nil {
			return backend.WrapErr("create", d, backend.ErrBackendError, err)
		}
	}
	return nil
}

func (b *Backend) Open(ctx context.Context) error {
	if err := b.ensureStarted(ctx); err != nil {
		return err
	}
	if _, err := b.call(ctx, "operations/list", map[string]any{"fs": b.remote + ":", "remote": b.path}); err != nil {
		return backend.WrapErr("open", b.fsArg(), backend.ErrBackendDoesNotExist, err)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	b.callLocked(ctx, "core/quit", nil)
	b.started = false
	if b.cmd != nil && b.cmd.Process != nil {
		b.cmd.Process.Kill()
		b.cmd.Wait()
	}
	return nil
}

func (b *Backend) Destroy(ctx context.Context) error {
	if _, err := b.call(ctx, "operations/purge", map[string]any{"fs": b.remote + ":", "remote": b.path}); err != nil {
		return backend.WrapErr("destroy", b.fsArg(), backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Mkdir(ctx context.Context, name string) error {
	if _, err := b.call(ctx, "operations/mkdir", map[string]any{"fs": b.remote + ":", "remote": b.full(name)}); err != nil {
		return backend.WrapErr("mkdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Rmdir(ctx context.Context, name string) error {
	if _, err := b.call(ctx, "operations/rmdir", map[string]any{"fs": b.remote + ":", "remote": b.full(name)}); err != nil {
		return backend.WrapErr("rmdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	out, err := b.call(ctx, "operations/stat", map[string]any{"fs": b.remote + ":", "remote": b.full(name)})
	if err != nil {
		return backend.Info{}, backend.WrapErr("info", name, backend.ErrBackendError, err)
	}
	item, ok := out["item"].(map[string]any)
	if !ok || item == nil {
		return backend.Info{}, nil
	}
	info := backend.Info{Exists: true}
	if isDir, ok := item["IsDir"].(bool); ok {
		info.Directory = isDir
	}
	if size, ok := item["Size"].(float64); ok {
		info.Size = int64(size)
	}
	return info, nil
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	if offset < 0 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, fmt.Errorf("negative offset"))
	}
	u := fmt.Sprintf("http://%s/[%s]/%s", b.addr, b.remote, strings.TrimPrefix(b.full(name), "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	req.SetBasicAuth("borgstore", b.token)
	if offset > 0 || size != backend.ReadToEOF {
		rangeHeader := "bytes=" + strconv.FormatInt(offset, 10) + "-"
		if size != backend.ReadToEOF {
			rangeHeader += strconv.FormatInt(offset+size-1, 10)
		}
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, backend.WrapErr("load", name, backend.ErrObjectNotFound, nil)
	}
	if resp.StatusCode >= 300 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, fmt.Errorf("status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	return data, nil
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	dir, file := splitPath(b.full(name))
	u := fmt.Sprintf("http://%s/[%s]/%s", b.addr, b.remote+":"+dir, file)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(value))
	if err != nil {
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	req.SetBasicAuth("borgstore", b.token)
	resp, err := b.http.Do(req)
	if err != nil {
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return backend.WrapErr("store", name, backend.ErrBackendError, fmt.Errorf("status %s: %s", resp.Status, data))
	}
	return nil
}

func splitPath(p string) (dir, file string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	info, err := b.Info(ctx, name)
	if err != nil {
		return err
	}
	if !info.Exists {
		return backend.WrapErr("delete", name, backend.ErrObjectNotFound, nil)
	}
	if _, err := b.call(ctx, "operations/deletefile", map[string]any{"fs": b.remote + ":", "remote": b.full(name)}); err != nil {
		return backend.WrapErr("delete", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Move(ctx context.Context, src, dst string) error {
	srcInfo, err := b.Info(ctx, src)
	if err != nil {
		return err
	}
	if !srcInfo.Exists {
		return backend.WrapErr("move", src, backend.ErrObjectNotFound, nil)
	}
	dstInfo, err := b.Info(ctx, dst)
	if err != nil {
		return err
	}
	if dstInfo.Exists {
		return backend.WrapErr("move", dst, backend.ErrObjectAlreadyExists, nil)
	}
	args := map[string]any{
		"srcFs":     b.remote + ":",
		"srcRemote": b.full(src),
		"dstFs":     b.remote + ":",
		"dstRemote": b.full(dst),
	}
	if _, err := b.call(ctx, "operations/movefile", args); err != nil {
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	out, err := b.call(ctx, "operations/list", map[string]any{"fs": b.remote + ":", "remote": b.full(name)})
	if err != nil {
		return nil, nil
	}
	rawList, _ := out["list"].([]any)
	entries := make([]backend.ListEntry, 0, len(rawList))
	for _, raw := range rawList {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		e := backend.ListEntry{}
		if n, ok := item["Name"].(string); ok {
			e.Name = n
		}
		if isDir, ok := item["IsDir"].(bool); ok {
			e.Directory = isDir
		}
		if size, ok := item["Size"].(float64); ok {
			e.Size = int64(size)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
