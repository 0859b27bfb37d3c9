package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"racevault/internal/gateway"
)

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys, err := NewFilesystem(t.TempDir(), "http://localhost:8081/")
	if err != nil {
		t.Fatal(err)
	}

	ref, err := fsys.Upload(ctx, gateway.Object{Bucket: "expense-proofs", Path: "race-1/a.pdf", Body: strings.NewReader("%PDF-1.4")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got := fsys.PublicURL(ref.Bucket, ref.Path); got != "http://localhost:8081/files/expense-proofs/race-1/a.pdf" {
		t.Fatalf("public url = %q", got)
	}

	_, err = fsys.Upload(ctx, gateway.Object{Bucket: "expense-proofs", Path: "race-1/a.pdf", Body: strings.NewReader("x")})
	if !errors.Is(err, gateway.ErrConflict) {
		t.Fatalf("expected conflict on overwrite, got %v", err)
	}

	srv := httptest.NewServer(http.StripPrefix("/files/", fsys.Handler()))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/files/expense-proofs/race-1/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "%PDF-1.4" {
		t.Fatalf("serve: %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/files/expense-proofs/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("directory listing should be refused, got %d", resp.StatusCode)
	}

	if err := fsys.Remove(ctx, ref.Bucket, ref.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fsys.Remove(ctx, ref.Bucket, ref.Path); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	fsys, err := NewFilesystem(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct{ bucket, path string }{
		{"expense-proofs", "../../etc/passwd"},
		{"expense-proofs", ""},
		{"../up", "a.pdf"},
		{"", "a.pdf"},
		{"expense-proofs", `a\..\b`},
	}
	for _, tc := range cases {
		_, err := fsys.Upload(context.Background(), gateway.Object{Bucket: tc.bucket, Path: tc.path, Body: strings.NewReader("x")})
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Upload(%q, %q) = %v, want ErrInvalidPath", tc.bucket, tc.path, err)
		}
	}
}
