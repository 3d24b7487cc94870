package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClaims(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
		ctx := WithClaims(context.Background(), claims)

		got, ok := GetClaims(ctx)
		require.True(t, ok)
		assert.Same(t, claims, got)
	})

	t.Run("absent", func(t *testing.T) {
		got, ok := GetClaims(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("wrong type under key", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ClaimsKey, "not-claims")
		_, ok := GetClaims(ctx)
		assert.False(t, ok)
	})
}
