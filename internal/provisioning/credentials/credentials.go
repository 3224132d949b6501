// Package credentials issues temporary sign-in secrets for newly
// provisioned profiles. Promotion of an agent without an account generates
// a secret here before any database write, so an issuance failure leaves
// no half-created profile behind.
package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "sigrh/pkg/domain-errors"
)

// Credential pairs the cleartext temporary secret (returned to the caller
// exactly once) with the bcrypt hash handed to the identity provider.
type Credential struct {
	Secret     string
	SecretHash string
}

// Issuer produces sign-in credentials for a new account.
type Issuer interface {
	Issue(email string) (Credential, error)
}

// Generator is the default Issuer: a random base64 secret, bcrypt-hashed.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Issue(email string) (Credential, error) {
	if email == "" {
		return Credential{}, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	secret, err := Generate()
	if err != nil {
		return Credential{}, err
	}
	hash, err := Hash(secret)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Secret: secret, SecretHash: hash}, nil
}

// Generate creates a cryptographically secure random secret,
// base64-encoded for transport.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided secret.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks if a plaintext secret matches a bcrypt hash.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid secret")
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
