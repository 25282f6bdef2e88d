package borgstore

import (
	"testing"

	"github.com/borgbackup/borgstore/backend/posixfs"
	"github.com/borgbackup/borgstore/backend/rclone"
	"github.com/borgbackup/borgstore/backend/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendFile(t *testing.T) {
	be, err := NewBackend("file:///tmp/store")
	require.NoError(t, err)
	_, ok := be.(*posixfs.Backend)
	assert.True(t, ok)
	assert.Equal(t, "file:///tmp/store", be.String())
}

func TestNewBackendRclone(t *testing.T) {
	be, err := NewBackend("rclone:myremote:a/b")
	require.NoError(t, err)
	_, ok := be.(*rclone.Backend)
	assert.True(t, ok)
	assert.Equal(t, "rclone:myremote:a/b", be.String())
}

func TestNewBackendRcloneMissingPath(t *testing.T) {
	_, err := NewBackend("rclone:myremote")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNewBackendS3Simple(t *testing.T) {
	be, err := NewBackend("s3:mybucket/prefix")
	require.NoError(t, err)
	s3be, ok := be.(*s3.Backend)
	require.True(t, ok)
	assert.Contains(t, s3be.String(), "mybucket")
}

func TestNewBackendS3WithCreds(t *testing.T) {
	be, err := NewBackend("s3:AKIAKEY:secret@mybucket/prefix")
	require.NoError(t, err)
	_, ok := be.(*s3.Backend)
	assert.True(t, ok)
}

func TestNewBackendS3WithEndpoint(t *testing.T) {
	be, err := NewBackend("s3:AKIAKEY:secret@https://s3.example.com:9000/mybucket/prefix")
	require.NoError(t, err)
	s3be, ok := be.(*s3.Backend)
	require.True(t, ok)
	assert.Equal(t, "s3://s3.example.com:9000/mybucket/prefix", s3be.String())
}

func TestNewBackendB2Scheme(t *testing.T) {
	be, err := NewBackend("b2:profile@mybucket/prefix")
	require.NoError(t, err)
	s3be, ok := be.(*s3.Backend)
	require.True(t, ok)
	assert.Contains(t, s3be.String(), "b2://")
}

func TestNewBackendUnknownScheme(t *testing.T) {
	_, err := NewBackend("ftp://host/path")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNewBackendMalformed(t *testing.T) {
	_, err := NewBackend("no-colon-at-all")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
