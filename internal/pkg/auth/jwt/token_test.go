package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	principal := &Principal{ID: "2f6b7c1e-1111-4222-8333-944455556666", Name: "Alice", Email: "alice@example.com"}

	tokenString, err := GenerateToken(principal, testSecret, SessionExpiration)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	verified, err := Verify(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, principal.ID, verified.ID)
	assert.Equal(t, principal.Name, verified.Name)
	assert.Equal(t, principal.Email, verified.Email)

	// Verify is deterministic for a given credential.
	again, err := Verify(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, verified, again)
}

func TestVerifyFailsClosed(t *testing.T) {
	principal := &Principal{ID: "2f6b7c1e-1111-4222-8333-944455556666", Name: "Alice", Email: "alice@example.com"}

	valid, err := GenerateToken(principal, testSecret, SessionExpiration)
	require.NoError(t, err)

	expired, err := GenerateToken(principal, testSecret, -time.Minute)
	require.NoError(t, err)

	noIdentity, err := GenerateToken(&Principal{}, testSecret, SessionExpiration)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "a-different-secret"},
		{"expired token", expired, testSecret},
		{"empty subject identity", noIdentity, testSecret},
		{"garbage input", "not.a.jwt", testSecret},
		{"empty input", "", testSecret},
		{"tampered payload", valid[:len(valid)-4] + "AAAA", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified, err := Verify(tt.token, tt.secret)
			require.Error(t, err)
			assert.Nil(t, verified, "a failed verification must never yield a partial identity")
		})
	}
}

func TestCredentialFromRequest(t *testing.T) {
	newRequest := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	}

	t.Run("no credential", func(t *testing.T) {
		assert.Empty(t, CredentialFromRequest(newRequest()))
	})

	t.Run("bearer header", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", CredentialFromRequest(r))
	})

	t.Run("session cookie fallback", func(t *testing.T) {
		r := newRequest()
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
		assert.Equal(t, "cookie-token", CredentialFromRequest(r))
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Bearer header-token")
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
		assert.Equal(t, "header-token", CredentialFromRequest(r))
	})

	t.Run("malformed scheme ignored, cookie used", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
		assert.Equal(t, "cookie-token", CredentialFromRequest(r))
	})
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	principal := &Principal{ID: "2f6b7c1e-1111-4222-8333-944455556666", Name: "Alice", Email: "alice@example.com"}
	tokenString, err := GenerateToken(principal, testSecret, SessionExpiration)
	require.NoError(t, err)

	var extracted *Principal
	handler := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extracted = GetPrincipalFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token yields principal", func(t *testing.T) {
		extracted = nil
		r := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		r.Header.Set("Authorization", "Bearer "+tokenString)

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, r)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, extracted)
		assert.Equal(t, principal.ID, extracted.ID)
	})

	t.Run("missing token passes through as anonymous", func(t *testing.T) {
		extracted = nil
		r := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, r)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, extracted)
	})

	t.Run("invalid token passes through as anonymous", func(t *testing.T) {
		extracted = nil
		r := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		r.Header.Set("Authorization", "Bearer "+tokenString+"tampered")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, r)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, extracted)
	})
}
