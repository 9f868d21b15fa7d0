// Package secrets seals provider credentials before they are stored.
package secrets

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/photolab/backend/internal/domain/fulfillment"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrOpenFailed is returned when sealed data cannot be authenticated
var ErrOpenFailed = errors.New("secrets: cannot open sealed credentials")

// SecretboxSealer implements fulfillment.CredentialSealer with NaCl secretbox.
// Output layout is nonce || box.
type SecretboxSealer struct {
	key   [32]byte
	nonce io.Reader
}

// NewSecretboxSealer creates a sealer with a 32-byte key
func NewSecretboxSealer(key [32]byte) *SecretboxSealer {
	return &SecretboxSealer{key: key, nonce: rand.Reader}
}

// Seal encrypts the credentials. Empty credentials seal to nil.
func (s *SecretboxSealer) Seal(creds fulfillment.Credentials) ([]byte, error) {
	if creds.IsZero() {
		return nil, nil
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.nonce, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

// Open decrypts credentials produced by Seal. Nil input opens to empty credentials.
func (s *SecretboxSealer) Open(sealed []byte) (fulfillment.Credentials, error) {
	var creds fulfillment.Credentials
	if len(sealed) == 0 {
		return creds, nil
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return creds, ErrOpenFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return creds, ErrOpenFailed
	}
	if err := json.Unmarshal(plain, &creds); err != nil {
		return fulfillment.Credentials{}, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return creds, nil
}

// Ensure SecretboxSealer implements CredentialSealer
var _ fulfillment.CredentialSealer = (*SecretboxSealer)(nil)
