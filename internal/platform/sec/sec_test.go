// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/platform/sec"
)

func newTokens(t *testing.T, issuer string) *sec.TokenService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return sec.NewTokenServiceFromKeys(key, &key.PublicKey, issuer)
}

/*
TestPasswordHash verifies a hash matches only its own password.
*/
func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, sec.CheckPasswordHash("s3cret", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
	assert.False(t, sec.CheckPasswordHash("s3cret", "not-a-hash"))
}

/*
TestTokenService verifies issued tokens round-trip and foreign or expired
tokens are rejected.
*/
func TestTokenService(t *testing.T) {
	tokens := newTokens(t, "mangashelf")

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := tokens.GenerateAccessToken("admin", "admin", string(sec.RoleAdmin), time.Hour)
		require.NoError(t, err)

		claims, err := tokens.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.UserID)
		assert.Equal(t, "admin", claims.Subject)
		assert.Equal(t, string(sec.RoleAdmin), claims.Role)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := tokens.GenerateAccessToken("admin", "admin", string(sec.RoleAdmin), -time.Minute)
		require.NoError(t, err)

		_, err = tokens.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("OtherIssuer", func(t *testing.T) {
		token, err := newTokens(t, "elsewhere").GenerateAccessToken("admin", "admin", string(sec.RoleAdmin), time.Hour)
		require.NoError(t, err)

		_, err = tokens.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tokens.VerifyToken("not.a.token")
		assert.Error(t, err)
	})
}

/*
TestUserRole_AtLeast verifies the role hierarchy.
*/
func TestUserRole_AtLeast(t *testing.T) {
	tests := []struct {
		role   sec.UserRole
		target sec.UserRole
		want   bool
	}{
		{role: sec.RoleAdmin, target: sec.RoleUploader, want: true},
		{role: sec.RoleAdmin, target: sec.RoleAdmin, want: true},
		{role: sec.RoleUploader, target: sec.RoleUploader, want: true},
		{role: sec.RoleUploader, target: sec.RoleAdmin, want: false},
		{role: sec.RoleReader, target: sec.RoleUploader, want: false},
		{role: sec.UserRole("ghost"), target: sec.RoleReader, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"_"+string(tt.target), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}
