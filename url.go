package borgstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/borgbackup/borgstore/backend/posixfs"
	"github.com/borgbackup/borgstore/backend/rclone"
	"github.com/borgbackup/borgstore/backend/s3"
	"github.com/borgbackup/borgstore/backend/sftp"
)

// NewBackend parses a store URL (spec.md §4.2) and constructs the matching
// Backend. Dispatch is pure: NewBackend performs no I/O, it only validates
// the URL's grammar and builds the Backend value; Backend.Create/Open
// perform the actual I/O.
//
//	file:///abs/path or file://rel/path              -> posixfs
//	sftp://user@host:port/rel or sftp://...//abs      -> sftp
//	rclone:REMOTE:path                                -> rclone
//	(s3|b2):[profile|key:secret@][scheme://host[:port]]/bucket/path -> s3
func NewBackend(rawURL string) (Backend, error) {
	scheme, rest, ok := strings.Cut(rawURL, ":")
	if !ok {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, nil)
	}

	switch scheme {
	case "file":
		return newPosixfsBackend(rawURL)
	case "sftp":
		return newSFTPBackend(rawURL)
	case "rclone":
		return newRcloneBackend(rest)
	case "s3", "b2":
		return newS3Backend(scheme, rest)
	default:
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, fmt.Errorf("unknown scheme %q", scheme))
	}
}

func newPosixfsBackend(rawURL string) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, err)
	}
	path := u.Path
	if u.Opaque != "" {
		// file:relative/path with no "//" authority
		path = u.Opaque
	}
	if u.Host != "" {
		// Windows drive letter form: file://C:/path -> host "C:" is not
		// valid as a URL host in practice, but some callers write
		// file://C:/path anyway; treat Host+Path as the full path.
		path = u.Host + path
	}
	if path == "" {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, fmt.Errorf("empty path"))
	}
	return posixfs.New(path), nil
}

func newSFTPBackend(rawURL string) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, err)
	}
	if u.Host == "" {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, fmt.Errorf("missing host"))
	}
	cfg := sftp.Config{
		User: u.User.Username(),
		Host: u.Hostname(),
		Port: u.Port(),
	}
	// u.Path keeps the slash that follows the authority: "/rel" for a
	// server-relative path, "//abs" for a server-absolute one. cfg.Path is
	// stored without those leading slashes; Absolute records which form it was.
	if strings.HasPrefix(u.Path, "//") {
		cfg.Path = strings.TrimPrefix(u.Path, "//")
		cfg.Absolute = true
	} else {
		cfg.Path = strings.TrimPrefix(u.Path, "/")
		cfg.Absolute = false
	}
	if cfg.Path == "" {
		return nil, wrapErr("NewBackend", rawURL, ErrInvalidURL, fmt.Errorf("missing path"))
	}
	return sftp.New(cfg), nil
}

func newRcloneBackend(rest string) (Backend, error) {
	remote, path, ok := strings.Cut(rest, ":")
	if !ok || remote == "" || path == "" {
		return nil, wrapErr("NewBackend", "rclone:"+rest, ErrInvalidURL, fmt.Errorf("expected rclone:REMOTE:path"))
	}
	return rclone.New(remote, path), nil
}

// newS3Backend parses (s3|b2):[profile|key:secret@][scheme://host[:port]]/bucket/path.
func newS3Backend(scheme, rest string) (Backend, error) {
	cfg := s3.Config{B2Quirks: scheme == "b2"}

	creds, rem, hasAt := cutLastAt(rest)
	if hasAt {
		if k, s, ok := strings.Cut(creds, ":"); ok {
			cfg.AccessKey, cfg.SecretKey = k, s
		} else {
			cfg.Profile = creds
		}
		rest = rem
	}

	if idx := strings.Index(rest, "://"); idx >= 0 {
		schemeEnd := idx
		// walk back to find where the embedded endpoint scheme starts;
		// it's the path segment immediately preceding "://"
		start := strings.LastIndex(rest[:schemeEnd], "/")
		start++
		cfg.Endpoint = rest[start:]
		rest = rest[:start]
		epURL, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, wrapErr("NewBackend", scheme+":"+rest, ErrInvalidURL, err)
		}
		endpointRemainder := strings.TrimPrefix(epURL.Path, "/")
		cfg.Endpoint = epURL.Host
		cfg.UseTLS = epURL.Scheme == "https"
		rest = strings.TrimSuffix(rest, "/") + "/" + endpointRemainder
	}

	rest = strings.TrimPrefix(rest, "/")
	bucket, path, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return nil, wrapErr("NewBackend", scheme+":"+rest, ErrInvalidURL, fmt.Errorf("missing bucket"))
	}
	cfg.Bucket = bucket
	cfg.Prefix = path
	return s3.New(cfg), nil
}

// cutLastAt splits s on the last unescaped "@" before the first "/", which
// is how s3://key:secret@host/bucket style URLs separate credentials from
// the rest (a bucket path or object key may itself legally contain "@").
func cutLastAt(s string) (before, after string, found bool) {
	slash := strings.Index(s, "/")
	head := s
	if slash >= 0 {
		head = s[:slash]
	}
	at := strings.LastIndex(head, "@")
	if at < 0 {
		return "", s, false
	}
	return s[:at], s[at+1:], true
}
