// Package supabase implements the gateway against a hosted Supabase
// project: PostgREST for tables and the storage API for receipts.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"racevault/internal/gateway"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the project at baseURL
// (e.g. https://xyz.supabase.co) authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) restURL(table string, v url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, decodeError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func list[T any](ctx context.Context, c *Client, q Query) ([]T, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.restURL(q.Table, q.Values()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	var out []T
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func getOne[T any](ctx context.Context, c *Client, q Query) (T, error) {
	var out T
	req, err := c.newRequest(ctx, http.MethodGet, c.restURL(q.Table, q.Values()), nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	err = c.do(req, &out)
	return out, err
}

func insert[T any](ctx context.Context, c *Client, table, sel string, row any) (T, error) {
	var zero T
	body, err := json.Marshal([]any{row})
	if err != nil {
		return zero, fmt.Errorf("encode %s row: %w", table, err)
	}
	v := url.Values{}
	if sel != "" {
		v.Set("select", sel)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.restURL(table, v), bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	var out []T
	if err := c.do(req, &out); err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("insert into %s returned no rows", table)
	}
	return out[0], nil
}
