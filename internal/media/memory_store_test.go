package media

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore("https://media.example.com")
	ctx := context.Background()

	if err := store.Put(ctx, "uploads/a.mp4", "video/mp4", bytes.NewReader([]byte("vvv")), 3); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(ctx, "uploads/a.mp4")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "vvv" {
		t.Fatalf("unexpected content: %q", got)
	}

	if _, err := store.Get(ctx, "uploads/missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Put(ctx, "  ", "video/mp4", bytes.NewReader(nil), 0); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestMemoryStoreGetURL(t *testing.T) {
	store := NewMemoryStore("https://media.example.com/")
	ctx := context.Background()

	if err := store.Put(ctx, "/uploads/b.wav", "audio/wav", bytes.NewReader([]byte("aaa")), 3); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	u, err := store.GetURL(ctx, "uploads/b.wav")
	if err != nil {
		t.Fatalf("get url failed: %v", err)
	}
	if u != "https://media.example.com/uploads/b.wav" {
		t.Fatalf("unexpected url: %s", u)
	}
	if _, err := store.GetURL(ctx, "uploads/missing.wav"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()

	for _, key := range []string{"uploads/b.wav", "uploads/a.mp4", "other/c.txt"} {
		if err := store.Put(ctx, key, "", bytes.NewReader([]byte("x")), 1); err != nil {
			t.Fatalf("put %s failed: %v", key, err)
		}
	}
	keys, err := store.List(ctx, "uploads/")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"uploads/a.mp4", "uploads/b.wav"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("unexpected keys: %#v", keys)
	}
}
