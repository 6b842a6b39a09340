// Package storage holds the object store used for product images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// CacheControl is sent with every served object
const CacheControl = "public, max-age=3600"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectStore stores uploaded files and exposes them under a public URL
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Bucket is an ObjectStore on top of an afero filesystem. Objects live under
// <root>/<name>/<key> and are served by Handler.
type Bucket struct {
	fs      afero.Fs
	name    string
	baseURL string
}

// NewBucket creates a bucket rooted at a directory of fs
func NewBucket(fs afero.Fs, name, publicBaseURL string) (*Bucket, error) {
	if err := fs.MkdirAll(name, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	return &Bucket{
		fs:      afero.NewBasePathFs(fs, name),
		name:    name,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// NewOSBucket creates a bucket stored on the local disk under root
func NewOSBucket(root, name, publicBaseURL string) (*Bucket, error) {
	if err := afero.NewOsFs().MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return NewBucket(afero.NewBasePathFs(afero.NewOsFs(), root), name, publicBaseURL)
}

// ObjectKey returns a fresh random key keeping the extension of filename
func ObjectKey(filename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(filename))
}

// Put writes body under key, replacing any existing object
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := b.fs.Create(key)
	if err != nil {
		return "", fmt.Errorf("failed to create object %s: %w", key, err)
	}

	if _, err := io.Copy(f, &contextReader{ctx: ctx, r: body}); err != nil {
		f.Close()
		b.fs.Remove(key)
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close object %s: %w", key, err)
	}

	return b.PublicURL(key), nil
}

// Delete removes the object stored under key
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	exists, err := afero.Exists(b.fs, key)
	if err != nil {
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if !exists {
		return ErrObjectNotFound
	}

	return b.fs.Remove(key)
}

// PublicURL returns the URL the object is served from
func (b *Bucket) PublicURL(key string) string {
	return b.baseURL + "/" + b.name + "/" + key
}

// Handler serves the bucket's objects over HTTP. It must be mounted so that
// the request path, after prefix stripping, is the object key.
func (b *Bucket) Handler() http.Handler {
	fileServer := http.FileServer(afero.NewHttpFs(b.fs).Dir("/"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if validateKey(key) != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", CacheControl)
		fileServer.ServeHTTP(w, r)
	})
}

// validateKey accepts flat keys only
func validateKey(key string) error {
	if key == "" || key == "." || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
