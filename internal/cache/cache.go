package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching search results and embeddings
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// Key generates a namespaced cache key from an arbitrary identifier
// (a search query, a text to embed).
func Key(id string) string {
	hash := sha256.Sum256([]byte(id))
	return "veridict:v1:" + hex.EncodeToString(hash[:])
}
