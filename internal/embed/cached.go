package embed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akraskov/veridict/internal/cache"
)

// CachedEncoder wraps an Encoder with a per-text cache. Safe because
// encoders are deterministic for identical input.
type CachedEncoder struct {
	inner Encoder
	store cache.Cache
	ttl   time.Duration
}

// NewCachedEncoder creates a caching wrapper around the given encoder
func NewCachedEncoder(inner Encoder, store cache.Cache, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{
		inner: inner,
		store: store,
		ttl:   ttl,
	}
}

// Encode returns cached vectors where available and encodes only the misses
func (e *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if data, found := e.store.Get(e.key(text)); found {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := e.inner.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		vectors[missingIdx[j]] = vec
		if data, err := json.Marshal(vec); err == nil {
			_ = e.store.Set(e.key(missing[j]), data, e.ttl)
		}
	}

	return vectors, nil
}

func (e *CachedEncoder) key(text string) string {
	return cache.Key("embed:" + text)
}
