package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"racevault/internal/gateway"
)

var _ gateway.ObjectStore = (*Client)(nil)

func objectPath(bucket, path string) string {
	segs := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(segs, "/")
}

// Upload stores obj without overwriting an existing object.
func (c *Client) Upload(ctx context.Context, obj gateway.Object) (gateway.ObjectRef, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/storage/v1/object/"+objectPath(obj.Bucket, obj.Path), obj.Body)
	if err != nil {
		return gateway.ObjectRef{}, err
	}
	if obj.ContentType != "" {
		req.Header.Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		req.ContentLength = obj.Size
	}
	req.Header.Set("x-upsert", "false")
	if err := c.do(req, nil); err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("upload %s/%s: %w", obj.Bucket, obj.Path, err)
	}
	return gateway.ObjectRef{Bucket: obj.Bucket, Path: obj.Path}, nil
}

// PublicURL is only meaningful for public buckets.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, path)
}

func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/storage/v1/object/"+objectPath(bucket, path), nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, path, err)
	}
	return nil
}
