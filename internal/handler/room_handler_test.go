package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/resp"
)

// authedRequest builds a JSON POST carrying a verified principal in its context.
func authedRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	principal := &jwt.Principal{ID: uuid.New().String(), Name: "Alice", Email: "alice@example.com"}
	ctx := context.WithValue(r.Context(), jwt.ContextPrincipalKey, principal)
	return r.WithContext(ctx)
}

func TestHandleCreateRoomRequiresAuth(t *testing.T) {
	handlerFunc := HandleCreateRoom(&AppDeps{})

	r := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"name":"General"}`))
	r.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, r)

	var envelope resp.JSONResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, errs.ErrUnauthorized, envelope.Code)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHandleCreateRoomNameValidation(t *testing.T) {
	handlerFunc := HandleCreateRoom(&AppDeps{})

	tests := []struct {
		name string
		body string
	}{
		{"too short", `{"name":"a"}`},
		{"whitespace only", `{"name":"   "}`},
		{"too long", `{"name":"` + strings.Repeat("r", 101) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handlerFunc(recorder, authedRequest(tt.body))

			var envelope resp.JSONResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
			assert.Equal(t, errs.ErrRoomNameInvalid, envelope.Code)
		})
	}
}
