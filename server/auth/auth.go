// Package auth checks the static shared secret presented as a bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nomis52/gymsync/server/config"
)

const bearerPrefix = "Bearer "

// Verifier reports whether a token equals the configured secret.
type Verifier interface {
	Verify(token string) bool
}

// KeyVerifier holds either the plaintext secret or its bcrypt hash.
type KeyVerifier struct {
	plain []byte
	hash  []byte
}

// NewKeyVerifier creates a KeyVerifier from the auth config.
func NewKeyVerifier(cfg config.AuthConfig) (*KeyVerifier, error) {
	switch {
	case cfg.APIKeyBcrypt != "":
		hash := []byte(cfg.APIKeyBcrypt)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid api_key_bcrypt: %w", err)
		}
		return &KeyVerifier{hash: hash}, nil
	case cfg.APIKey != "":
		return &KeyVerifier{plain: []byte(cfg.APIKey)}, nil
	default:
		return nil, errors.New("no api key configured")
	}
}

// Verify reports whether token equals the secret.
func (k *KeyVerifier) Verify(token string) bool {
	if k.hash != nil {
		return bcrypt.CompareHashAndPassword(k.hash, []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare(k.plain, []byte(token)) == 1
}

// BearerToken returns the text after "Bearer " in the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// Authorized reports whether r carries a bearer token accepted by v.
func Authorized(v Verifier, r *http.Request) bool {
	token, ok := BearerToken(r)
	if !ok {
		return false
	}
	return v.Verify(token)
}
