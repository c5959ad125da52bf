package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	generationrepo "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/repository/generation"
	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/media"
)

func newWatchServer(t *testing.T) (*httptest.Server, *generationsvc.Service) {
	t.Helper()
	api := &fakeSyncAPI{}
	records := generationrepo.NewMemoryStore()
	store := media.NewMemoryStore("https://media.example.com")
	svc := generationsvc.New(api, store, records, generationsvc.NewHub(), "", zerolog.Nop())
	h := NewWatchHandler(svc, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /generations/watch", h.HandleWatchWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, svc
}

func dialWatch(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/generations/watch?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWatchDeliversTerminalUpdateBeforeClose(t *testing.T) {
	srv, svc := newWatchServer(t)
	conn := dialWatch(t, srv, "gen-1")

	var first watchWSOutbound
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read subscribed failed: %v", err)
	}
	if first.Type != "subscribed" || first.ID != "gen-1" {
		t.Fatalf("unexpected first message: %+v", first)
	}

	svc.Hub().Publish(generationsvc.Update{
		ID:        "gen-1",
		Status:    "COMPLETED",
		OutputURL: "https://cdn.example.com/out.mp4",
	})

	// The terminal update must arrive before the server closes the socket.
	gotTerminal := false
	for {
		var msg watchWSOutbound
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "update" && msg.Status == "COMPLETED" {
			if msg.OutputURL != "https://cdn.example.com/out.mp4" {
				t.Fatalf("terminal update lost its output url: %+v", msg)
			}
			gotTerminal = true
		}
	}
	if !gotTerminal {
		t.Fatalf("connection closed without delivering the terminal update")
	}

	// The server side must have unsubscribed once the stream ended.
	deadline := time.Now().Add(3 * time.Second)
	for svc.Hub().Subscribers("gen-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watcher still subscribed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchStreamsIntermediateUpdates(t *testing.T) {
	srv, svc := newWatchServer(t)
	conn := dialWatch(t, srv, "gen-2")

	var first watchWSOutbound
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read subscribed failed: %v", err)
	}

	svc.Hub().Publish(generationsvc.Update{ID: "gen-2", Status: "PROCESSING"})

	var msg watchWSOutbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update failed: %v", err)
	}
	if msg.Type != "update" || msg.Status != "PROCESSING" {
		t.Fatalf("unexpected update: %+v", msg)
	}

	// Non-terminal updates keep the stream open.
	svc.Hub().Publish(generationsvc.Update{ID: "gen-2", Status: "FAILED", Error: "boom"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read terminal update failed: %v", err)
	}
	if msg.Status != "FAILED" || msg.Error != "boom" {
		t.Fatalf("unexpected terminal update: %+v", msg)
	}
}

func TestWatchRequiresID(t *testing.T) {
	srv, _ := newWatchServer(t)

	resp, err := http.Get(srv.URL + "/generations/watch")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", resp.StatusCode)
	}
}
