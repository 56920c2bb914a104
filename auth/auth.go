// Package auth verifies pilot credentials for the login step.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrNoHash = errors.New("no password hash configured")

// Verifier decides whether a credential is valid for a pilot
type Verifier interface {
	Verify(ctx context.Context, pilotID, credential string) bool
}

// VerifierFunc adapts a plain function to Verifier
type VerifierFunc func(ctx context.Context, pilotID, credential string) bool

func (f VerifierFunc) Verify(ctx context.Context, pilotID, credential string) bool {
	return f(ctx, pilotID, credential)
}

// SharedPassword accepts any pilot ID together with one password shared by
// the whole crew. The stored hash is either bcrypt or hex-encoded SHA-256.
type SharedPassword struct {
	hash string
}

func NewSharedPassword(hash string) (*SharedPassword, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrNoHash
	}
	if !isBcrypt(hash) {
		if _, err := hex.DecodeString(hash); err != nil || len(hash) != sha256.Size*2 {
			return nil, fmt.Errorf("password hash is neither bcrypt nor sha256 hex")
		}
	}
	return &SharedPassword{hash: hash}, nil
}

func (p *SharedPassword) Verify(_ context.Context, _ string, credential string) bool {
	if isBcrypt(p.hash) {
		return bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(credential)) == nil
	}
	sum := sha256.Sum256([]byte(credential))
	candidate := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(strings.ToLower(p.hash))) == 1
}

// HashPassword produces a bcrypt hash suitable for SHARED_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
