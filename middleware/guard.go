// Package middleware provides the HTTP guard that fronts shelfauth-protected
// routes. It only moves tokens between requests and the engine; resource
// handlers stay untouched.
package middleware

import (
	"context"
	"net/http"
	"strings"

	shelfauth "github.com/shelfd/shelfauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validation result the guard stored for
// this request.
func AuthResultFromContext(ctx context.Context) (*shelfauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*shelfauth.AuthResult)
	return res, ok
}

// Guard validates the Bearer access token on every request and stashes the
// result in the request context. Any failure is a bare 401; callers learn
// nothing about why a token was rejected.
func Guard(engine *shelfauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on an exact role match. It must run inside
// Guard, which populates the context.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || res.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
