// Package s3 is the S3-compatible Backend driver (spec.md §4.2 "s3:"/"b2:").
// It is built on github.com/minio/minio-go/v7, which speaks both AWS S3 and
// the S3-compatible surface Backblaze B2 exposes.
package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/borgbackup/borgstore/backend"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes how to reach and where to root an s3 backend.
type Config struct {
	Profile   string // shared-credentials-file profile name, if no keys given
	AccessKey string
	SecretKey string
	Endpoint  string // host[:port], no scheme; empty means AWS's default
	UseTLS    bool
	Bucket    string
	Prefix    string

	// B2Quirks is set for backends built from a "b2:" URL. It only changes
	// the scheme String reports; requests are made exactly as for "s3:",
	// with no B2-specific handling.
	B2Quirks bool
}

// Backend is an S3-backed backend.Backend.
type Backend struct {
	cfg    Config
	client *minio.Client
}

// New constructs an s3 backend. No network I/O happens until Create/Open.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) String() string {
	scheme := "s3"
	if b.cfg.B2Quirks {
		scheme = "b2"
	}
	return scheme + "://" + b.cfg.Endpoint + "/" + b.cfg.Bucket + "/" + b.cfg.Prefix
}

func (b *Backend) connect() error {
	if b.client != nil {
		return nil
	}
	endpoint := b.cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	var creds *credentials.Credentials
	switch {
	case b.cfg.AccessKey != "":
		creds = credentials.NewStaticV4(b.cfg.AccessKey, b.cfg.SecretKey, "")
	case b.cfg.Profile != "":
		creds = credentials.NewFileAWSCredentials("", b.cfg.Profile)
	default:
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: b.cfg.UseTLS,
	})
	if err != nil {
		return backend.WrapErr("connect", endpoint, backend.ErrBackendError, err)
	}
	b.client = client
	return nil
}

func (b *Backend) key(name string) string {
	if b.cfg.Prefix == "" {
		return name
	}
	if name == "" {
		return strings.TrimSuffix(b.cfg.Prefix, "/")
	}
	return strings.TrimSuffix(b.cfg.Prefix, "/") + "/" + name
}

func (b *Backend) Create(ctx context.Context, precreateDirs []string) error {
	if err := b.connect(); err != nil {
		return err
	}
	exists, err := b.client.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		return backend.WrapErr("create", b.cfg.Bucket, backend.ErrBackendError, err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return backend.WrapErr("create", b.cfg.Bucket, backend.ErrBackendError, err)
		}
	}
	// S3 has no real directories; precreateDirs are markers only, skipped.
	return nil
}

func (b *Backend) Open(ctx context.Context) error {
	if err := b.connect(); err != nil {
		return err
	}
	exists, err := b.client.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		return backend.WrapErr("open", b.cfg.Bucket, backend.ErrBackendError, err)
	}
	if !exists {
		return backend.WrapErr("open", b.cfg.Bucket, backend.ErrBackendDoesNotExist, nil)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) error { return nil }

func (b *Backend) Destroy(ctx context.Context) error {
	objCh := b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{Prefix: b.key(""), Recursive: true})
	for obj := range objCh {
		if obj.Err != nil {
			return backend.WrapErr("destroy", obj.Key, backend.ErrBackendError, obj.Err)
		}
		if err := b.client.RemoveObject(ctx, b.cfg.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return backend.WrapErr("destroy", obj.Key, backend.ErrBackendError, err)
		}
	}
	return nil
}

// Mkdir/Rmdir are no-ops: S3 has no real directories, only key prefixes.
func (b *Backend) Mkdir(ctx context.Context, name string) error { return nil }
func (b *Backend) Rmdir(ctx context.Context, name string) error { return nil }

func (b *Backend) Info(ctx context.Context, name string) (backend.Info, error) {
	st, err := b.client.StatObject(ctx, b.cfg.Bucket, b.key(name), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return backend.Info{}, nil
		}
		return backend.Info{}, backend.WrapErr("info", name, backend.ErrBackendError, err)
	}
	return backend.Info{Exists: true, Size: st.Size}, nil
}

func (b *Backend) Load(ctx context.Context, name string, offset, size int64) ([]byte, error) {
	if offset < 0 {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, os.ErrInvalid)
	}
	opts := minio.GetObjectOptions{}
	if offset > 0 || size != backend.ReadToEOF {
		end := int64(0)
		if size != backend.ReadToEOF {
			end = offset + size - 1
		}
		if err := opts.SetRange(offset, end); err != nil {
			return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
		}
	}
	obj, err := b.client.GetObject(ctx, b.cfg.Bucket, b.key(name), opts)
	if err != nil {
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, backend.WrapErr("load", name, backend.ErrObjectNotFound, err)
		}
		return nil, backend.WrapErr("load", name, backend.ErrBackendError, err)
	}
	return data, nil
}

func (b *Backend) Store(ctx context.Context, name string, value []byte) error {
	_, err := b.client.PutObject(ctx, b.cfg.Bucket, b.key(name), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		return backend.WrapErr("store", name, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	if _, err := b.client.StatObject(ctx, b.cfg.Bucket, b.key(name), minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return backend.WrapErr("delete", name, backend.ErrObjectNotFound, nil)
		}
	}
	if err := b.client.RemoveObject(ctx, b.cfg.Bucket, b.key(name), minio.RemoveObjectOptions{}); err != nil {
		return backend.WrapErr("delete", name, backend.ErrBackendError, err)
	}
	return nil
}

// Move has no native rename in S3: copy then delete the source, which is
// what every S3-based backup backend does (S3 objects are immutable blobs
// addressed by key, not inodes). The move is therefore not atomic: between
// the copy and the delete, both src and dst exist.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	if _, err := b.client.StatObject(ctx, b.cfg.Bucket, b.key(src), minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return backend.WrapErr("move", src, backend.ErrObjectNotFound, err)
		}
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	if _, err := b.client.StatObject(ctx, b.cfg.Bucket, b.key(dst), minio.StatObjectOptions{}); err == nil {
		return backend.WrapErr("move", dst, backend.ErrObjectAlreadyExists, nil)
	}
	_, err := b.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: b.cfg.Bucket, Object: b.key(dst)},
		minio.CopySrcOptions{Bucket: b.cfg.Bucket, Object: b.key(src)})
	if err != nil {
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	if err := b.client.RemoveObject(ctx, b.cfg.Bucket, b.key(src), minio.RemoveObjectOptions{}); err != nil {
		return backend.WrapErr("move", src, backend.ErrBackendError, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, name string) ([]backend.ListEntry, error) {
	prefix := b.key(name)
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
	}
	objCh := b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false})
	var out []backend.ListEntry
	for obj := range objCh {
		if obj.Err != nil {
			return nil, backend.WrapErr("list", name, backend.ErrBackendError, obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			out = append(out, backend.ListEntry{Name: strings.TrimSuffix(rel, "/"), Directory: true})
			continue
		}
		out = append(out, backend.ListEntry{Name: rel, Size: obj.Size})
	}
	return out, nil
}
