package media

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		// Presigned URLs expire after an hour; recycle them well before that.
		URLTTL:        45 * time.Minute,
		URLMaxEntries: 1024,
	}
}

type MetricsSnapshot struct {
	BlobHits     uint64
	BlobMisses   uint64
	URLHits      uint64
	URLMisses    uint64
	OriginReads  uint64
	OriginWrites uint64
}

type metrics struct {
	blobHits     atomic.Uint64
	blobMisses   atomic.Uint64
	urlHits      atomic.Uint64
	urlMisses    atomic.Uint64
	originReads  atomic.Uint64
	originWrites atomic.Uint64
}

// CachedStore wraps an origin Store with read-through LRU+TTL caches for
// blobs and URLs. Writes go straight through and invalidate.
type CachedStore struct {
	origin Store

	blobCache *expirable.LRU[string, []byte]
	urlCache  *expirable.LRU[string, string]
	metrics   metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = def.URLTTL
	}
	if cfg.URLMaxEntries <= 0 {
		cfg.URLMaxEntries = def.URLMaxEntries
	}
	return &CachedStore{
		origin:    origin,
		blobCache: expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		urlCache:  expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if err := s.origin.Put(ctx, key, contentType, r, size); err != nil {
		return err
	}
	s.metrics.originWrites.Add(1)
	s.blobCache.Remove(key)
	s.urlCache.Remove(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.blobCache.Get(key); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), data...), nil
	}
	s.metrics.blobMisses.Add(1)

	data, err := s.origin.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.metrics.originReads.Add(1)
	s.blobCache.Add(key, append([]byte(nil), data...))
	return data, nil
}

func (s *CachedStore) GetURL(ctx context.Context, key string) (string, error) {
	if u, ok := s.urlCache.Get(key); ok {
		s.metrics.urlHits.Add(1)
		return u, nil
	}
	s.metrics.urlMisses.Add(1)

	u, err := s.origin.GetURL(ctx, key)
	if err != nil {
		return "", err
	}
	s.metrics.originReads.Add(1)
	if u != "" {
		s.urlCache.Add(key, u)
	}
	return u, nil
}

// List is not cached; listings are rare and must be fresh.
func (s *CachedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.origin.List(ctx, prefix)
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		BlobHits:     s.metrics.blobHits.Load(),
		BlobMisses:   s.metrics.blobMisses.Load(),
		URLHits:      s.metrics.urlHits.Load(),
		URLMisses:    s.metrics.urlMisses.Load(),
		OriginReads:  s.metrics.originReads.Load(),
		OriginWrites: s.metrics.originWrites.Load(),
	}
}
