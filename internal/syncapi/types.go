package syncapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "lipsync-2"

// GenerationStatus is the lifecycle status reported by the sync API.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "PENDING"
	StatusProcessing GenerationStatus = "PROCESSING"
	StatusCompleted  GenerationStatus = "COMPLETED"
	StatusFailed     GenerationStatus = "FAILED"
	StatusCanceled   GenerationStatus = "CANCELED"
	StatusRejected   GenerationStatus = "REJECTED"
	StatusTimedOut   GenerationStatus = "TIMED_OUT"
)

// Terminal reports whether the status is final and will not change again.
func (s GenerationStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled, StatusRejected, StatusTimedOut:
		return true
	}
	return false
}

// Input is one source media item of a generation. The wire shape is a JSON
// object tagged with "type" ("video" or "audio").
type Input interface {
	inputType() string
}

// VideoInput references the source video by URL. SegmentsSecs optionally
// restricts syncing to [start, end] second pairs.
type VideoInput struct {
	URL          string       `json:"url"`
	SegmentsSecs [][2]float64 `json:"segments_secs,omitempty"`
}

func (VideoInput) inputType() string { return "video" }

// AudioInput references the source audio by URL.
type AudioInput struct {
	URL          string       `json:"url"`
	SegmentsSecs [][2]float64 `json:"segments_secs,omitempty"`
}

func (AudioInput) inputType() string { return "audio" }

func (v VideoInput) MarshalJSON() ([]byte, error) {
	type alias VideoInput
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: v.inputType(), alias: alias(v)})
}

func (a AudioInput) MarshalJSON() ([]byte, error) {
	type alias AudioInput
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: a.inputType(), alias: alias(a)})
}

// InputList decodes the tagged union form of generation inputs.
type InputList []Input

func (l *InputList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(InputList, 0, len(raw))
	for _, item := range raw {
		var tag struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(item, &tag); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(tag.Type)) {
		case "video":
			var v VideoInput
			if err := json.Unmarshal(item, &v); err != nil {
				return err
			}
			out = append(out, v)
		case "audio":
			var a AudioInput
			if err := json.Unmarshal(item, &a); err != nil {
				return err
			}
			out = append(out, a)
		default:
			return fmt.Errorf("unknown input type %q", tag.Type)
		}
	}
	*l = out
	return nil
}

// SyncMode controls how the service reconciles video and audio of different
// lengths.
type SyncMode string

const (
	SyncModeCutOff  SyncMode = "cut_off"
	SyncModeLoop    SyncMode = "loop"
	SyncModeBounce  SyncMode = "bounce"
	SyncModeSilence SyncMode = "silence"
	SyncModeRemap   SyncMode = "remap"
)

// GenerationOptions are the optional generation tuning knobs.
type GenerationOptions struct {
	SyncMode      SyncMode `json:"sync_mode,omitempty" validate:"omitempty,oneof=cut_off loop bounce silence remap"`
	Temperature   *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	ActiveSpeaker *bool    `json:"active_speaker,omitempty"`
}

// Generation is one lipsync job as reported by the sync API.
type Generation struct {
	ID             string             `json:"id"`
	Status         GenerationStatus   `json:"status"`
	Model          string             `json:"model,omitempty"`
	Input          InputList          `json:"input,omitempty"`
	Options        *GenerationOptions `json:"options,omitempty"`
	WebhookURL     string             `json:"webhookUrl,omitempty"`
	OutputURL      string             `json:"outputUrl,omitempty"`
	OutputDuration float64            `json:"outputDuration,omitempty"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"createdAt,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt,omitempty"`
}

// CreateGenerationRequest is the payload for Create and EstimateCost.
type CreateGenerationRequest struct {
	Model      string             `json:"model" validate:"required"`
	Input      []Input            `json:"input" validate:"required,min=2"`
	Options    *GenerationOptions `json:"options,omitempty"`
	WebhookURL string             `json:"webhookUrl,omitempty" validate:"omitempty,url"`
}

// normalize fills defaults before validation.
func (r *CreateGenerationRequest) normalize() {
	r.Model = strings.TrimSpace(r.Model)
	if r.Model == "" {
		r.Model = DefaultModel
	}
}

// checkInputs enforces what struct tags cannot: at least one video and one
// audio input, each with a non-empty URL.
func (r *CreateGenerationRequest) checkInputs() error {
	var videos, audios int
	for i, in := range r.Input {
		switch v := in.(type) {
		case VideoInput:
			if strings.TrimSpace(v.URL) == "" {
				return fmt.Errorf("input[%d]: video url is required", i)
			}
			videos++
		case AudioInput:
			if strings.TrimSpace(v.URL) == "" {
				return fmt.Errorf("input[%d]: audio url is required", i)
			}
			audios++
		default:
			return fmt.Errorf("input[%d]: unsupported input type", i)
		}
	}
	if videos == 0 {
		return fmt.Errorf("at least one video input is required")
	}
	if audios == 0 {
		return fmt.Errorf("at least one audio input is required")
	}
	return nil
}

// ListOptions control cursor pagination of List.
type ListOptions struct {
	Cursor string
	Limit  int
}

// GenerationList is one page of generations.
type GenerationList struct {
	Generations []Generation `json:"generations"`
	NextCursor  string       `json:"nextCursor,omitempty"`
}

// CostEstimate is the projected cost of a prospective generation.
// Monetary values are exact decimals, never floats.
type CostEstimate struct {
	Model            string          `json:"model,omitempty"`
	InputDuration    float64         `json:"inputDuration,omitempty"`
	EstimatedCredits decimal.Decimal `json:"estimatedCredits"`
	EstimatedCost    decimal.Decimal `json:"estimatedCost"`
	Currency         string          `json:"currency,omitempty"`
}
