// Package generation persists the generations created through this gateway
// so listings and webhook updates survive without a round trip to the
// remote API.
package generation

import (
	"context"
	"errors"
	"time"
)

// Record is one locally tracked generation.
type Record struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	VideoKey  string    `json:"video_key,omitempty"`
	AudioKey  string    `json:"audio_key,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	OutputURL string    `json:"output_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines operations for persisting generation records.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	UpdateStatus(ctx context.Context, id, status, outputURL, errMsg string) (Record, error)
}

var ErrNotFound = errors.New("generation record not found")
