// Package crypto provides the symmetric encryption used for sensitive
// values in local storage: AES-256-GCM with a key derived from a single
// static secret.
//
// The key derivation is deliberately deterministic and unsalted
// (sha256 of the secret). That is enough to keep tokens from casual
// inspection of the store; it is not a defence against an attacker who
// holds the secret. Callers needing stronger guarantees must layer a
// proper KDF and key rotation on top.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
)

// Cipher performs fail-open authenticated encryption of opaque strings.
// Every operation degrades to returning its input rather than failing,
// and reports the degradation through the second return value.
type Cipher struct {
	aead cipher.AEAD
	log  *zap.Logger
}

// New derives a 256-bit AES-GCM key from secret. The same secret always
// yields the same key.
func New(secret string, log *zap.Logger) (*Cipher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &Cipher{aead: aead, log: log}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns
// base64(nonce || ciphertext). On any failure it returns the plaintext
// unchanged and ok=false; callers must treat the value as "maybe
// encrypted" and never assume success.
func (c *Cipher) Encrypt(plaintext string) (string, bool) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		c.log.Warn("nonce generation failed, storing plaintext", zap.Error(err))
		return plaintext, false
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), true
}

// Decrypt reverses Encrypt. On any failure (bad base64, short input,
// authentication failure) it returns the input unchanged and ok=false.
func (c *Cipher) Decrypt(ciphertext string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		c.log.Debug("decrypt: not base64, returning raw value", zap.Error(err))
		return ciphertext, false
	}
	if len(raw) < c.aead.NonceSize() {
		c.log.Debug("decrypt: value shorter than nonce, returning raw value")
		return ciphertext, false
	}
	nonce, body := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		c.log.Debug("decrypt: authentication failed, returning raw value", zap.Error(err))
		return ciphertext, false
	}
	return string(plain), true
}

// IsEncrypted reports whether value looks like output of Encrypt: valid
// base64 decoding to more bytes than a nonce. It is a heuristic, not a
// guarantee; short or coincidentally base64-shaped plaintext can
// misclassify either way.
func (c *Cipher) IsEncrypted(value string) bool {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return false
	}
	return len(raw) > c.aead.NonceSize()
}
