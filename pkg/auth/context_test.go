package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "subject present",
			ctx:  WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"}}),
			want: "user-42",
		},
		{
			name: "no claims",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "nil claims",
			ctx:  context.WithValue(context.Background(), ClaimsKey, (*Claims)(nil)),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetUserIDFromContext(tt.ctx))
		})
	}
}

func TestRequireUserIDFromContext(t *testing.T) {
	userID, err := RequireUserIDFromContext(WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"}}))
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	_, err = RequireUserIDFromContext(context.Background())
	assert.Error(t, err)
}
