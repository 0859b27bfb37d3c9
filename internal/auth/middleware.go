package auth

import (
	"context"
	"net/http"
	"strings"

	"racevault/internal/core"
	"racevault/internal/log"
)

// CookieName is the cookie consulted when no Authorization header is sent.
const CookieName = "racevault_token"

type principalKey struct{}

func WithPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the middleware.
func PrincipalFrom(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(core.Principal)
	return p, ok
}

// Resolver turns a request into a principal.
type Resolver interface {
	Resolve(r *http.Request) (core.Principal, error)
}

// Placeholder resolves every request to the same fixed user.
type Placeholder struct {
	Principal core.Principal
}

func (p Placeholder) Resolve(*http.Request) (core.Principal, error) {
	return p.Principal, nil
}

// Bearer resolves requests carrying a signed token in the Authorization
// header or the session cookie.
type Bearer struct {
	Tokens *TokenService
}

func (b Bearer) Resolve(r *http.Request) (core.Principal, error) {
	return b.Tokens.Parse(tokenFromRequest(r))
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware stores the resolved principal in the request context.
// Unresolvable requests get 401.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.Resolve(r)
			if err != nil {
				log.FromContext(r.Context()).WithComponent(log.ComponentAuth).Warn("Request rejected",
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
