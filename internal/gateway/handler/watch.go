package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
	// watchPollEvery drives the fallback poll when no webhook beats it.
	watchPollEvery = 3 * time.Second
)

var watchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WatchHandler streams generation status changes over a websocket.
type WatchHandler struct {
	svc    *generationsvc.Service
	logger zerolog.Logger
}

func NewWatchHandler(svc *generationsvc.Service, logger zerolog.Logger) *WatchHandler {
	return &WatchHandler{svc: svc, logger: logger}
}

type watchWSOutbound struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	OutputURL string `json:"outputUrl,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (h *WatchHandler) HandleWatchWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Unblocks the read loop once the stream is over.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		h.logger.Warn().Err(err).Msg("watch ws set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	// writeCh is closed by the update goroutine once the final status is
	// queued; the writer drains it fully before the socket goes away, so the
	// terminal update is never lost to shutdown.
	writeCh := make(chan watchWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(watchWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-writeCh:
				if !ok {
					// Drained. Say goodbye, then let the closer goroutine
					// tear the connection down.
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(watchWSWriteWait))
					cancel()
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	updates, unsubscribe := h.svc.Hub().Subscribe(id)
	defer unsubscribe()

	pushWatchWS(writeCh, watchWSOutbound{Type: "subscribed", ID: id})

	// Webhook deliveries and the fallback poll both land here.
	go func() {
		poll := time.NewTicker(watchPollEvery)
		defer poll.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				pushWatchWS(writeCh, watchWSOutbound{
					Type:      "update",
					ID:        u.ID,
					Status:    u.Status,
					OutputURL: u.OutputURL,
					Error:     u.Error,
				})
				if syncapi.GenerationStatus(u.Status).Terminal() {
					close(writeCh)
					return
				}
			case <-poll.C:
				gen, err := h.svc.Get(ctx, id)
				if err != nil {
					if syncapi.IsNotFound(err) {
						pushWatchWS(writeCh, watchWSOutbound{
							Type:    "error",
							ID:      id,
							Code:    "not_found",
							Message: err.Error(),
						})
						close(writeCh)
						return
					}
					continue
				}
				pushWatchWS(writeCh, watchWSOutbound{
					Type:      "update",
					ID:        gen.ID,
					Status:    string(gen.Status),
					OutputURL: gen.OutputURL,
					Error:     gen.Error,
				})
				if gen.Status.Terminal() {
					close(writeCh)
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			return
		}
	}
}

func pushWatchWS(writeCh chan watchWSOutbound, out watchWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
