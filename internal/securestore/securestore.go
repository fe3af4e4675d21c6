// Package securestore wraps the key-value store with transparent
// encryption for a fixed set of sensitive key names. Callers only ever
// see plaintext; the encrypt/decrypt decision is owned here.
package securestore

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/crypto"
	"github.com/libridge/shelfsync/internal/store"
)

// sensitiveNames are matched as case-insensitive substrings of the key.
// A key containing any of them is encrypted before persistence.
var sensitiveNames = []string{"token", "refreshtoken", "user", "accesstoken"}

// IsSensitiveKey reports whether values under key must be encrypted.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, name := range sensitiveNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// SecureStore is a Store wrapper that encrypts sensitive values.
// Crypto failures never surface to the caller: a value that could not
// be encrypted is stored in the clear, a value that could not be
// decrypted is returned raw. Both cases are logged.
type SecureStore struct {
	store  store.Store
	cipher *crypto.Cipher
	log    *zap.Logger
}

// New wires a SecureStore over the given backing store and cipher.
func New(s store.Store, c *crypto.Cipher, log *zap.Logger) *SecureStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SecureStore{store: s, cipher: c, log: log}
}

// SetItem persists value under key, encrypting it first when the key is
// sensitive. Store I/O errors are returned; encryption degradation is not.
func (s *SecureStore) SetItem(ctx context.Context, key, value string) error {
	if IsSensitiveKey(key) {
		enc, ok := s.cipher.Encrypt(value)
		if !ok {
			s.log.Warn("storing sensitive value unencrypted", zap.String("key", key))
		}
		value = enc
	}
	return s.store.Set(ctx, key, value)
}

// GetItem returns the plaintext value under key, or store.ErrNotFound.
// A sensitive value that does not look encrypted (legacy plaintext
// write, or a fail-open Set) is returned as stored.
func (s *SecureStore) GetItem(ctx context.Context, key string) (string, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if IsSensitiveKey(key) && s.cipher.IsEncrypted(raw) {
		plain, ok := s.cipher.Decrypt(raw)
		if !ok {
			s.log.Warn("decrypt failed, returning raw stored value", zap.String("key", key))
		}
		return plain, nil
	}
	return raw, nil
}

// RemoveItem deletes key from the backing store.
func (s *SecureStore) RemoveItem(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

// Clear removes every entry from the backing store.
func (s *SecureStore) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
