package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"racevault/internal/gateway"
)

type object struct {
	contentType string
	data        []byte
}

// Objects is an in-memory object store.
type Objects struct {
	mu      sync.Mutex
	baseURL string
	items   map[string]object
}

var _ gateway.ObjectStore = (*Objects)(nil)

// NewObjects returns a store whose public URLs are rooted at baseURL.
func NewObjects(baseURL string) *Objects {
	return &Objects{baseURL: strings.TrimRight(baseURL, "/"), items: make(map[string]object)}
}

func (o *Objects) Upload(_ context.Context, obj gateway.Object) (gateway.ObjectRef, error) {
	if obj.Bucket == "" || obj.Path == "" {
		return gateway.ObjectRef{}, fmt.Errorf("bucket and path are required")
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("read object: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	k := key(obj.Bucket, obj.Path)
	if _, exists := o.items[k]; exists {
		return gateway.ObjectRef{}, fmt.Errorf("object %s: %w", k, gateway.ErrConflict)
	}
	o.items[k] = object{contentType: obj.ContentType, data: data}
	return gateway.ObjectRef{Bucket: obj.Bucket, Path: obj.Path}, nil
}

func (o *Objects) PublicURL(bucket, path string) string {
	return o.baseURL + "/files/" + key(bucket, path)
}

func (o *Objects) Remove(_ context.Context, bucket, path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := key(bucket, path)
	if _, ok := o.items[k]; !ok {
		return fmt.Errorf("object %s: %w", k, gateway.ErrNotFound)
	}
	delete(o.items, k)
	return nil
}

// Get returns a stored object and its content type.
func (o *Objects) Get(bucket, path string) (io.Reader, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.items[key(bucket, path)]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(obj.data), obj.contentType, true
}

// Len reports the number of stored objects.
func (o *Objects) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Handler serves stored objects at "/<bucket>/<path>". Mount it under
// "/files/" with the prefix stripped.
func (o *Objects) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, p, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok || p == "" {
			http.NotFound(w, r)
			return
		}
		body, contentType, found := o.Get(bucket, p)
		if !found {
			http.NotFound(w, r)
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		io.Copy(w, body)
	})
}

func key(bucket, path string) string { return bucket + "/" + strings.TrimLeft(path, "/") }
