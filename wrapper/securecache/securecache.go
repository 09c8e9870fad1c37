// Package securecache provides a cache wrapper that encrypts stored
// entries with AES-256-GCM. The key is derived from a passphrase using
// scrypt, so cached response bodies can sit in shared backends (Redis,
// object storage) without being readable there.
package securecache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/sandrolain/respcache"
)

const (
	// scrypt parameters for key derivation
	scryptN = 32768
	scryptR = 8
	scryptP = 1

	keyLength = 32 // AES-256
	nonceSize = 12 // GCM standard nonce
)

// Cache wraps a respcache.Cache with transparent encryption.
type Cache struct {
	inner respcache.Cache
	gcm   cipher.AEAD
}

// New wraps inner, deriving the encryption key from passphrase. The
// passphrase must be non-empty and stay consistent across restarts for
// old entries to remain readable.
func New(inner respcache.Cache, passphrase string) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("securecache: inner cache cannot be nil")
	}
	if passphrase == "" {
		return nil, errors.New("securecache: passphrase cannot be empty")
	}

	// a passphrase-derived salt keeps derivation deterministic across
	// processes sharing the backend
	salt := sha256.Sum256([]byte("respcache-securecache:" + passphrase))
	key, err := scrypt.Key([]byte(passphrase), salt[:16], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("securecache: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securecache: cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("securecache: gcm: %w", err)
	}
	return &Cache{inner: inner, gcm: gcm}, nil
}

// Set encrypts value and stores it with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("securecache: nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, value, []byte(key))
	return c.inner.Set(ctx, key, sealed, ttl)
}

// Get retrieves and decrypts a value. Entries that fail authentication
// (wrong passphrase, tampering, truncation) degrade to a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(sealed) < nonceSize {
		return nil, false, nil
	}
	value, err := c.gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], []byte(key))
	if err != nil {
		return nil, false, nil
	}
	return value, true, nil
}
