package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/compcontrol/api/internal/storage"
)

// keyAlphabet is the character set for generated API keys.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz"

// keyLength is the length of generated API keys.
const keyLength = 64

// Issuer mints new API keys and records them in the key store.
type Issuer struct {
	keys storage.KeyStore
}

// NewIssuer creates an issuer over the given key store.
func NewIssuer(keys storage.KeyStore) *Issuer {
	return &Issuer{keys: keys}
}

// Issue generates a new key, persists it, and returns it.
// The key is the only copy handed out; it is stored verbatim because the
// key store's lookup contract is exact-match token validation.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	key, err := generateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	if err := i.keys.PutKey(ctx, key); err != nil {
		return "", fmt.Errorf("persist key: %w", err)
	}

	log.Printf("auth: issued new API key")
	return key, nil
}

// generateKey returns a 64-character alphanumeric key from crypto/rand.
func generateKey() (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// Map each byte into the alphabet. The 62-character alphabet makes the
	// distribution very slightly uneven, which is acceptable for a
	// 64-character bearer token (~380 bits of input entropy).
	for idx, b := range buf {
		buf[idx] = keyAlphabet[int(b)%len(keyAlphabet)]
	}

	return string(buf), nil
}
