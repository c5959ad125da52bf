package syncapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitUntilTerminal(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		status := StatusProcessing
		output := ""
		if n >= 3 {
			status = StatusCompleted
			output = "https://cdn.example.com/out.mp4"
		}
		fmt.Fprintf(w, `{"id":"gen-1","status":%q,"outputUrl":%q}`, status, output)
	}))

	gen, err := client.Generations.Wait(context.Background(), "gen-1", &WaitOptions{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if gen.Status != StatusCompleted {
		t.Fatalf("unexpected status %s", gen.Status)
	}
	if gen.OutputURL == "" {
		t.Fatalf("expected output url")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestWaitTimeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"gen-1","status":"PROCESSING"}`)
	}))

	gen, err := client.Generations.Wait(context.Background(), "gen-1", &WaitOptions{
		Interval: 10 * time.Millisecond,
		Timeout:  60 * time.Millisecond,
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if gen == nil || gen.Status != StatusProcessing {
		t.Fatalf("expected last seen generation, got %+v", gen)
	}
}

func TestWaitStopsOnPermanentError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"code":"forbidden","message":"key revoked"}`)
	}))

	_, err := client.Generations.Wait(context.Background(), "gen-1", &WaitOptions{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
	})
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestWaitCancel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"gen-1","status":"PENDING"}`)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := client.Generations.Wait(ctx, "gen-1", &WaitOptions{
		Interval: 10 * time.Millisecond,
		Timeout:  time.Minute,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
