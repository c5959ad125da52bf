package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeOriginStore struct {
	mu sync.Mutex

	data map[string][]byte
	urls map[string]string

	getCalls int
	putCalls int
	urlCalls int

	failPut bool
}

func newFakeOriginStore() *fakeOriginStore {
	return &fakeOriginStore{
		data: map[string][]byte{},
		urls: map[string]string{},
	}
}

func (s *fakeOriginStore) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPut {
		return fmt.Errorf("put failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.data[key] = data
	return nil
}

func (s *fakeOriginStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *fakeOriginStore) GetURL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlCalls++
	return s.urls[key], nil
}

func (s *fakeOriginStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, 8)
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func TestCachedStoreReadThroughAndMetrics(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["uploads/a.mp4"] = []byte("hello")
	store := NewCachedStore(origin, CacheConfig{
		BlobTTL: time.Minute, BlobMaxEntries: 8,
		URLTTL: time.Minute, URLMaxEntries: 8,
	})

	got1, err := store.Get(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	got2, err := store.Get(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(got1) != "hello" || string(got2) != "hello" {
		t.Fatalf("unexpected content: %q %q", got1, got2)
	}
	if origin.getCalls != 1 {
		t.Fatalf("expected one origin get call, got %d", origin.getCalls)
	}
	m := store.Metrics()
	if m.BlobHits != 1 || m.BlobMisses != 1 || m.OriginReads != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestCachedStoreWriteThroughInvalidates(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["uploads/a.mp4"] = []byte("old")
	origin.urls["uploads/a.mp4"] = "https://example.com/old"
	store := NewCachedStore(origin, DefaultCacheConfig())

	// Warm both caches.
	if _, err := store.Get(context.Background(), "uploads/a.mp4"); err != nil {
		t.Fatalf("warm get failed: %v", err)
	}
	if _, err := store.GetURL(context.Background(), "uploads/a.mp4"); err != nil {
		t.Fatalf("warm url failed: %v", err)
	}

	if err := store.Put(context.Background(), "uploads/a.mp4", "video/mp4", bytes.NewReader([]byte("new")), 3); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("get after put failed: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("stale blob after write: %q", got)
	}
	if origin.putCalls != 1 {
		t.Fatalf("expected one origin put call, got %d", origin.putCalls)
	}

	origin.failPut = true
	if err := store.Put(context.Background(), "uploads/b.mp4", "", bytes.NewReader([]byte("bad")), 3); err == nil {
		t.Fatalf("expected put error")
	}
}

func TestCachedStoreURLCache(t *testing.T) {
	origin := newFakeOriginStore()
	origin.urls["uploads/a.mp4"] = "https://example.com/a"
	store := NewCachedStore(origin, DefaultCacheConfig())

	u1, err := store.GetURL(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("url1 failed: %v", err)
	}
	u2, err := store.GetURL(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("url2 failed: %v", err)
	}
	if u1 != u2 || u1 != "https://example.com/a" {
		t.Fatalf("url mismatch: %s vs %s", u1, u2)
	}
	if origin.urlCalls != 1 {
		t.Fatalf("expected one origin url call, got %d", origin.urlCalls)
	}

	// Empty origin URLs are never cached.
	if _, err := store.GetURL(context.Background(), "uploads/none"); err != nil {
		t.Fatalf("empty url failed: %v", err)
	}
	if _, err := store.GetURL(context.Background(), "uploads/none"); err != nil {
		t.Fatalf("empty url second failed: %v", err)
	}
	if origin.urlCalls != 3 {
		t.Fatalf("expected empty urls to bypass the cache, got %d calls", origin.urlCalls)
	}
}

func TestCachedStoreTTL(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["uploads/a.mp4"] = []byte("A")
	store := NewCachedStore(origin, CacheConfig{
		BlobTTL: 20 * time.Millisecond, BlobMaxEntries: 8,
		URLTTL: time.Minute, URLMaxEntries: 8,
	})

	if _, err := store.Get(context.Background(), "uploads/a.mp4"); err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := store.Get(context.Background(), "uploads/a.mp4"); err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if origin.getCalls != 2 {
		t.Fatalf("expected 2 origin reads after ttl expiry, got %d", origin.getCalls)
	}
}
