// Package objectstore keeps receipts on the local filesystem for the
// self-hosted backends.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"racevault/internal/gateway"
)

var ErrInvalidPath = errors.New("invalid object path")

// Filesystem stores objects as <root>/<bucket>/<path>.
type Filesystem struct {
	root    string
	baseURL string
}

var _ gateway.ObjectStore = (*Filesystem)(nil)

// NewFilesystem creates root if needed. Public URLs are
// <baseURL>/files/<bucket>/<path>.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Filesystem{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// resolve maps bucket/path to a file under root, rejecting anything that
// would escape it.
func (f *Filesystem) resolve(bucket, p string) (string, error) {
	if bucket == "" || p == "" || strings.ContainsAny(bucket, `/\`) {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, `\`) || strings.Contains(p, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(f.root, bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (f *Filesystem) Upload(ctx context.Context, obj gateway.Object) (gateway.ObjectRef, error) {
	if err := ctx.Err(); err != nil {
		return gateway.ObjectRef{}, err
	}
	dst, err := f.resolve(obj.Bucket, obj.Path)
	if err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("upload %s/%s: %w", obj.Bucket, obj.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("create object dir: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return gateway.ObjectRef{}, fmt.Errorf("object %s/%s: %w", obj.Bucket, obj.Path, gateway.ErrConflict)
	}
	if err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(out, obj.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return gateway.ObjectRef{}, fmt.Errorf("write object: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return gateway.ObjectRef{}, fmt.Errorf("close object: %w", err)
	}
	return gateway.ObjectRef{Bucket: obj.Bucket, Path: obj.Path}, nil
}

func (f *Filesystem) PublicURL(bucket, p string) string {
	return f.baseURL + "/files/" + bucket + "/" + strings.TrimLeft(p, "/")
}

func (f *Filesystem) Remove(_ context.Context, bucket, p string) error {
	dst, err := f.resolve(bucket, p)
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, p, err)
	}
	if err := os.Remove(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("object %s/%s: %w", bucket, p, gateway.ErrNotFound)
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// Handler serves stored objects. Mount it under /files/ with the prefix
// stripped. Directory listings are refused.
func (f *Filesystem) Handler() http.Handler {
	files := http.FileServer(http.Dir(f.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
