package syncapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Webhook headers set by the sync API on callback deliveries.
const (
	SignatureHeader = "X-Sync-Signature"
	TimestampHeader = "X-Sync-Timestamp"
)

const maxWebhookSkew = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleWebhook     = errors.New("stale webhook delivery")
)

// Event names delivered over webhooks.
const (
	EventGenerationCompleted = "generation.completed"
	EventGenerationFailed    = "generation.failed"
)

// WebhookEvent is one callback delivery from the sync API.
type WebhookEvent struct {
	ID         string     `json:"id"`
	Event      string     `json:"event"`
	CreatedAt  time.Time  `json:"createdAt,omitempty"`
	Generation Generation `json:"generation"`
}

// ComputeSignature returns the hex HMAC-SHA256 of the delivery. When a
// timestamp is present it is bound into the MAC as "<ts>.<body>".
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	if timestamp != "" {
		mac.Write([]byte(timestamp))
		mac.Write([]byte("."))
	}
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the delivery signature and, when a timestamp header
// is present, rejects deliveries older than five minutes.
func VerifySignature(secret string, header http.Header, body []byte) error {
	got := strings.TrimSpace(header.Get(SignatureHeader))
	if got == "" {
		return ErrInvalidSignature
	}
	ts := strings.TrimSpace(header.Get(TimestampHeader))
	if ts != "" {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad timestamp", ErrStaleWebhook)
		}
		age := time.Since(time.Unix(unix, 0))
		if age > maxWebhookSkew || age < -maxWebhookSkew {
			return ErrStaleWebhook
		}
	}
	want := ComputeSignature(secret, ts, body)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseEvent verifies and decodes one webhook delivery.
func ParseEvent(secret string, header http.Header, body []byte) (*WebhookEvent, error) {
	if err := VerifySignature(secret, header, body); err != nil {
		return nil, err
	}
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	if strings.TrimSpace(evt.Generation.ID) == "" {
		return nil, fmt.Errorf("webhook event has no generation id")
	}
	return &evt, nil
}
