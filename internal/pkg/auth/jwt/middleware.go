package jwt

import (
	"context"
	"net/http"
	"strings"

	"parley/internal/pkg/logx"
)

// contextKey prevents key collisions with other packages storing request context values.
type contextKey string

const (
	// ContextPrincipalKey is the key under which the verified Principal is stored in the request context.
	ContextPrincipalKey contextKey = "auth_principal"

	// SessionCookieName is the cookie consulted when no bearer token is presented.
	SessionCookieName = "parley_token"
)

// CredentialFromRequest extracts the raw session credential from a request,
// checking the Authorization bearer header first and falling back to the
// session cookie. It returns "" when neither source is present.
func CredentialFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// IdentityExtractorMiddleware verifies the request credential and injects the
// resulting Principal into the context. It does NOT reject the request on a
// missing or invalid token; the user is simply treated as anonymous, and
// routes requiring authentication check for a nil Principal themselves.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromRequest(r)
			if credential == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := Verify(credential, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextPrincipalKey, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipalFromContext safely extracts the authenticated Principal from the request context.
// A nil return means the request is anonymous.
func GetPrincipalFromContext(r *http.Request) *Principal {
	principal, ok := r.Context().Value(ContextPrincipalKey).(*Principal)

	if !ok {
		return nil
	}

	return principal
}
