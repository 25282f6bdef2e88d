// Package sftp is the SFTP Backend driver (spec.md §4.2 "sftp://"). It dials
// over golang.org/x/crypto/ssh using the invoking user's agent/known_hosts
// setup (the same pattern restic's own sftp backend uses) and drives the
// remote filesystem through github.com/pkg/sftp.
package sftp

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sync"

	"github.com/borgbackup/borgstore/backend"
	pkgsftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config describes how to reach and where to root an sftp backend.
type Config struct {
	User string
	Host string
	Port string // empty means 22
	Path string // server-relative or server-absolute, per Absolute
	Absolute bool

	// KnownHostsFile overrides $HOME/.ssh/known_hosts; mainly for tests.
	KnownHostsFile string
}

// Backend is an sftp-backed backend.Backend.
type Backend struct {
	cfg Config

	mu     sync.Mutex
	client *ssh.Client
	sc     *pkgsftp.Client
	root   string
}

// New constructs an sftp backend. No network I/O happens until Create/Open.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) String() string {
	scheme := "/"
	if b.cfg.Absolute {
		scheme = "//"
	}
	return fmt.Sprintf("sftp://%s@%s:%s%s%s", b.cfg.User, b.cfg.Host, b.port(), scheme, b.cfg.Path)
}

func (b *Backend) port() string {
	if b.cfg.Port == "" {
		return "22"
	}
	return b.cfg.Port
}

func (b *Backend) dial(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc != nil {
		return nil
	}

	hostKeyCallback, err := b.hostKeyCallback()
	if err != nil {
		return backend.WrapErr("dial", b.cfg.Host, backend.ErrBackendError, err)
	}

	auths, err := b.authMethods()
	if err != nil {
		return backend.WrapErr("dial", b.cfg.Host, backend.ErrBackendError, err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            b.cfg.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
	}

	addr := net.JoinHostPort(b.cfg.Host, b.port())
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return backend.WrapErr("dial", addr, backend.ErrBackendError, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		return backend.WrapErr("dial", addr, backend.ErrBackendError, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	sc, err := pkgsftp.NewClient(client)
	if err != nil {
		client.Close()
		return backend.WrapErr("dial", addr, backend.ErrBackendError, err)
	}

	b.client = client
	b.sc = sc
	if b.cfg.Absolute {
		b.root = "/" + b.cfg.Path
	} else {
		home, err := sc.Getwd()
		if err == nil {
			b.root = path.Join(home, b.cfg.Path)
		} else {
			b.root = b.cfg.Path
		}
	}
	return nil
}

func (b *Backend) authMethods() ([]ssh.AuthMethod, error) {
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			return []ssh.AuthMethod{ssh.PublicKeysCallback(agent.NewClient(conn).Signers)}, nil
		}
	}
	return nil, fmt.Errorf("no usable ssh auth method (SSH_AUTH_SOCK not set)")
}

func (b *Backend) hostKeyCallback() (ssh.HostKeyCallback, error) {
	file := b.cfg.KnownHostsFile
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		file = home + "/.ssh/known_hosts"
	}
	return knownhosts.New(file)
}

func (b *Backend) full(name string) string {
	if name == "" {
		return b.root
	}
	return path.Join(b.root, name)
}

func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	if err := b.dial(ctx); err != nil {
		return err
	}
	entries, err := b.sc.ReadDir(b.root)
	if err == nil && len(entries) > 0 {
		return backend.WrapErr("create", b.root, backend.ErrBackendAlreadyExists, nil)
	}
	if err := b.sc.MkdirAll(b.root); err != nil {
		return backend.WrapErr("create", b.root, backend.ErrBackendError, err)
	}
	for _, d := range precreateDirs {
		if err := b.sc.MkdirAll(b.full(d)); err != nil {
			return backend.WrapErr("create", d, backend.ErrBackendError, err)
		}
	}
	return nil
}

func (b *Backend) Open(ctx context.Context) error {
	if err := b.dial(ctx); err != nil {
		return err
	}
	if _, err := b.sc.Stat(b.root); err != nil {
		return backend.WrapErr("open", b.root, backend.ErrBackendDoesNotExist, err)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc != nil {
		b.sc.Close()
		b.sc = nil
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	return nil
}

func (b *Backend) Destroy(ctx context.Context) error {
	if err := b.sc.RemoveAll(b.root); err != nil {
		return backend.WrapErr("destroy", b.root, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Mkdir(ctx context.Context, name string) error {
	if err := b.sc.MkdirAll(b.full(name)); err != nil {
		return backend.WrapErr("mkdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Rmdir(ctx context.Context, name string) error {
	if err := b.sc.RemoveDirectory(b.full(name)); err != nil {
		return backend.WrapErr("rmdir", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	st, err := b.sc.Stat(b.full(name))
	if err != nil {
		if os.IsNotExist(err) {
			return backend.Info{}, nil
		}
		return backend.Info{}, backend.WrapErr("info", name, backend.ErrBackendError, err)
	}
	return backend.Info{Exists: true, Size: st.Size(), Directory: st.IsDir()}, nil
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	if offset < 0 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, fmt.Errorf("negative offset"))
	}
	f, err := b.sc.Open(b.full(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.WrapErr("load", name, backend.ErrObjectNotFound, err)
		}
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
		}
	}
	if size == backend.ReadToEOF {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
		}
		return data, nil
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	return buf[:n], nil
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	tmp := b.full(name) + ".tmp"
	f, err := b.sc.Create(tmp)
	if err != nil {
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	if _, err := f.Write(value); err != nil {
		f.Close()
		b.sc.Remove(tmp)
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	if err := f.Close(); err != nil {
		b.sc.Remove(tmp)
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	if err := b.sc.PosixRename(tmp, b.full(name)); err != nil {
		b.sc.Remove(tmp)
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	if err := b.sc.Remove(b.full(name)); err != nil {
		if os.IsNotExist(err) {
			return backend.WrapErr("delete", name, backend.ErrObjectNotFound, err)
		}
		return backend.WrapErr("delete", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Move(ctx context.Context, src, dst string) error {
	if _, err := b.sc.Stat(b.full(src)); err != nil {
		if os.IsNotExist(err) {
			return backend.WrapErr("move", src, backend.ErrObjectNotFound, err)
		}
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	if _, err := b.sc.Stat(b.full(dst)); err == nil {
		return backend.WrapErr("move", dst, backend.ErrObjectAlreadyExists, nil)
	}
	if err := b.sc.MkdirAll(path.Dir(b.full(dst))); err != nil {
		return backend.WrapErr("move", dst, backend.ErrBackendError, err)
	}
	if err := b.sc.PosixRename(b.full(src), b.full(dst)); err != nil {
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	entries, err := b.sc.ReadDir(b.full(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, backend.WrapErr("list", name, backend.ErrBackendError, err)
	}
	out := make([]backend.ListEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, backend.ListEntry{Name: e.Name(), Directory: e.IsDir(), Size: e.Size()})
	}
	return out, nil
}
