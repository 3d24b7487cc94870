package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	claims      *Claims
	validateErr error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*Claims, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	return m.claims, nil
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"}}
	middleware := NewMiddleware(&mockAuthService{claims: claims}, zap.NewNop())

	var ctxUserID string
	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		ctxUserID = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", ctxUserID)
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "missing header", err: ErrMissingAuthorization},
		{name: "bad format", err: ErrInvalidAuthFormat},
		{name: "no subject", err: ErrMissingSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewMiddleware(&mockAuthService{validateErr: tt.err}, zap.NewNop())

			called := false
			handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}
