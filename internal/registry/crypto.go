package registry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// CredentialSealer encrypts source access credentials at rest so a
// database dump never exposes live device tokens.
type CredentialSealer struct {
	key []byte
}

// NewCredentialSealer derives a sealing key from the configured
// secret. An empty secret disables sealing (credentials stored
// verbatim), which is acceptable only for local development.
func NewCredentialSealer(secret string) *CredentialSealer {
	if secret == "" {
		return &CredentialSealer{}
	}
	key := sha256.Sum256([]byte(secret))
	return &CredentialSealer{key: key[:]}
}

// Enabled reports whether sealing is active.
func (s *CredentialSealer) Enabled() bool { return len(s.key) > 0 }

// Seal encrypts a credential for storage. The nonce is prepended to
// the ciphertext and the whole value is base64-encoded.
func (s *CredentialSealer) Seal(credential string) (string, error) {
	if !s.Enabled() {
		return credential, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(credential), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a stored credential.
func (s *CredentialSealer) Open(stored string) (string, error) {
	if !s.Enabled() {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("stored credential is not base64: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("stored credential too short")
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open credential: %w", err)
	}
	return string(plain), nil
}
