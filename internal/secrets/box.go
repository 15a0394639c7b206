// Package secrets provides authenticated encryption for values stored at
// rest, such as bot environment variables.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Box encrypts and decrypts short strings with AES-256-GCM under a single
// master key. Ciphertexts are base64(nonce|ciphertext).
type Box struct {
	aead cipher.AEAD
}

// NewBox creates a Box from a 32-byte master key.
func NewBox(masterKey []byte) (*Box, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// NewBoxFromString creates a Box from a base64- or hex-encoded 32-byte
// master key, as carried in an environment variable.
func NewBoxFromString(raw string) (*Box, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("master key is required (32 bytes, base64 or hex)")
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return NewBox(b)
	}
	raw = strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(raw); err == nil && len(b) == 32 {
		return NewBox(b)
	}
	return nil, errors.New("master key must be base64(32 bytes) or hex(32 bytes)")
}

// Encrypt seals plaintext and returns base64(nonce|ciphertext).
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := b.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ct...)), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (b *Box) Decrypt(enc string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return "", err
	}
	if len(raw) < b.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce := raw[:b.aead.NonceSize()]
	ct := raw[b.aead.NonceSize():]
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
