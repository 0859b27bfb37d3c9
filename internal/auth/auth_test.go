package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret)
	user := uuid.MustParse("3200ac84-2611-4c20-8c3e-e33c4fba5075")

	token, err := svc.Issue(user, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.UserID != user {
		t.Fatalf("UserID = %s, want %s", p.UserID, user)
	}
}

func TestTokenRejections(t *testing.T) {
	svc := NewTokenService(testSecret)
	user := uuid.New()

	expired := NewTokenService(testSecret)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue(user, time.Hour)

	otherKey, _ := NewTokenService("another-secret-another-secret-xx").Issue(user, time.Hour)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expiredToken, ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Parse(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIssueRequiresUser(t *testing.T) {
	if _, err := NewTokenService(testSecret).Issue(uuid.Nil, time.Hour); !errors.Is(err, core.ErrMissingOwner) {
		t.Fatalf("err = %v", err)
	}
}

func principalEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			t.Error("principal missing from context")
		}
		w.Write([]byte(p.UserID.String()))
	})
}

func TestMiddlewarePlaceholder(t *testing.T) {
	user := uuid.New()
	h := Middleware(Placeholder{Principal: core.Principal{UserID: user}})(principalEcho(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != user.String() {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMiddlewareBearer(t *testing.T) {
	svc := NewTokenService(testSecret)
	user := uuid.New()
	token, _ := svc.Issue(user, time.Hour)
	h := Middleware(Bearer{Tokens: svc})(principalEcho(t))

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && rec.Body.String() != user.String() {
				t.Fatalf("body = %q", rec.Body.String())
			}
		})
	}
}
