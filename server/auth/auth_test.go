package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nomis52/gymsync/server/config"
)

func TestNewKeyVerifier(t *testing.T) {
	_, err := NewKeyVerifier(config.AuthConfig{})
	assert.Error(t, err)

	_, err = NewKeyVerifier(config.AuthConfig{APIKeyBcrypt: "not-a-hash"})
	assert.Error(t, err)

	v, err := NewKeyVerifier(config.AuthConfig{APIKey: "dev-key"})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestKeyVerifier_Verify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	plain, err := NewKeyVerifier(config.AuthConfig{APIKey: "s3cret"})
	require.NoError(t, err)
	hashed, err := NewKeyVerifier(config.AuthConfig{APIKeyBcrypt: string(hash)})
	require.NoError(t, err)

	tests := []struct {
		token string
		want  bool
	}{
		{"s3cret", true},
		{"S3cret", false},
		{"s3cret ", false},
		{"s3cre", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, plain.Verify(tt.token), "plaintext")
			assert.Equal(t, tt.want, hashed.Verify(tt.token), "bcrypt")
		})
	}
}

func TestAuthorized(t *testing.T) {
	v, err := NewKeyVerifier(config.AuthConfig{APIKey: "dev-key"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid", "Bearer dev-key", true},
		{"missing header", "", false},
		{"wrong key", "Bearer other", false},
		{"wrong scheme", "Basic dev-key", false},
		{"lowercase scheme", "bearer dev-key", false},
		{"no space", "Bearerdev-key", false},
		{"trailing text", "Bearer dev-key extra", false},
		{"empty token", "Bearer ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/status", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, Authorized(v, r))
		})
	}
}
