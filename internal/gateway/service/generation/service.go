// Package generation orchestrates the sync API client, the media store and
// the local record store behind the gateway endpoints.
package generation

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	generationrepo "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/repository/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/media"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

// SyncAPI is the slice of the SDK the service needs. *syncapi.GenerationsService
// satisfies it.
type SyncAPI interface {
	Create(ctx context.Context, req syncapi.CreateGenerationRequest) (*syncapi.Generation, error)
	Get(ctx context.Context, id string) (*syncapi.Generation, error)
	List(ctx context.Context, opts *syncapi.ListOptions) (*syncapi.GenerationList, error)
	EstimateCost(ctx context.Context, req syncapi.CreateGenerationRequest) (*syncapi.CostEstimate, error)
}

type Service struct {
	api     SyncAPI
	media   media.Store
	records generationrepo.Store
	hub     *Hub
	logger  zerolog.Logger

	// webhookURL, when set, is advertised on create so the remote service
	// calls this gateway back instead of being polled.
	webhookURL string
}

func New(api SyncAPI, mediaStore media.Store, records generationrepo.Store, hub *Hub, webhookURL string, logger zerolog.Logger) *Service {
	if hub == nil {
		hub = NewHub()
	}
	return &Service{
		api:        api,
		media:      mediaStore,
		records:    records,
		hub:        hub,
		webhookURL: strings.TrimSpace(webhookURL),
		logger:     logger,
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// CreateParams describe a generation from already reachable URLs.
type CreateParams struct {
	VideoURL string
	AudioURL string
	Model    string
	Options  *syncapi.GenerationOptions
}

// Create submits a generation for a pair of media URLs and records it.
func (s *Service) Create(ctx context.Context, p CreateParams) (*syncapi.Generation, error) {
	return s.create(ctx, p, "", "")
}

func (s *Service) create(ctx context.Context, p CreateParams, videoKey, audioKey string) (*syncapi.Generation, error) {
	gen, err := s.api.Create(ctx, syncapi.CreateGenerationRequest{
		Model: p.Model,
		Input: []syncapi.Input{
			syncapi.VideoInput{URL: p.VideoURL},
			syncapi.AudioInput{URL: p.AudioURL},
		},
		Options:    p.Options,
		WebhookURL: s.webhookURL,
	})
	if err != nil {
		return nil, err
	}

	rec := generationrepo.Record{
		ID:       gen.ID,
		Model:    gen.Model,
		Status:   string(gen.Status),
		VideoKey: videoKey,
		AudioKey: audioKey,
		VideoURL: p.VideoURL,
		AudioURL: p.AudioURL,
	}
	if err := s.records.Put(ctx, rec); err != nil {
		// The remote job exists either way; tracking is best effort.
		s.logger.Warn().Str("generation_id", gen.ID).Err(err).Msg("record generation failed")
	}
	s.logger.Info().Str("generation_id", gen.ID).Str("model", gen.Model).Msg("generation created")
	return gen, nil
}

// Get fetches the generation from the remote API and reconciles the local
// record, notifying watchers when the status moved.
func (s *Service) Get(ctx context.Context, id string) (*syncapi.Generation, error) {
	gen, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reconcile(ctx, gen)
	return gen, nil
}

// List proxies the remote listing.
func (s *Service) List(ctx context.Context, cursor string, limit int) (*syncapi.GenerationList, error) {
	return s.api.List(ctx, &syncapi.ListOptions{Cursor: cursor, Limit: limit})
}

// ListLocal returns the generations created through this gateway.
func (s *Service) ListLocal(ctx context.Context) ([]generationrepo.Record, error) {
	return s.records.List(ctx)
}

// Upload describes one incoming multipart file.
type Upload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// UploadAndCreate stores both files, resolves fetchable URLs for them and
// submits the generation.
func (s *Service) UploadAndCreate(ctx context.Context, video, audio Upload, model string, opts *syncapi.GenerationOptions) (*syncapi.Generation, error) {
	videoKey, videoURL, err := s.upload(ctx, "video", video)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	audioKey, audioURL, err := s.upload(ctx, "audio", audio)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	return s.create(ctx, CreateParams{
		VideoURL: videoURL,
		AudioURL: audioURL,
		Model:    model,
		Options:  opts,
	}, videoKey, audioKey)
}

// EstimateCost stores both files and prices the prospective generation.
func (s *Service) EstimateCost(ctx context.Context, video, audio Upload, model string) (*syncapi.CostEstimate, error) {
	_, videoURL, err := s.upload(ctx, "video", video)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	_, audioURL, err := s.upload(ctx, "audio", audio)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	return s.api.EstimateCost(ctx, syncapi.CreateGenerationRequest{
		Model: model,
		Input: []syncapi.Input{
			syncapi.VideoInput{URL: videoURL},
			syncapi.AudioInput{URL: audioURL},
		},
	})
}

func (s *Service) upload(ctx context.Context, kind string, up Upload) (key, url string, err error) {
	if up.Reader == nil {
		return "", "", fmt.Errorf("%s file is required", kind)
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(up.Filename)))
	key = "uploads/" + uuid.NewString() + ext
	if err := s.media.Put(ctx, key, up.ContentType, up.Reader, up.Size); err != nil {
		return "", "", err
	}
	url, err = s.media.GetURL(ctx, key)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", "", fmt.Errorf("media store returned no url for %s", key)
	}
	s.logger.Debug().Str("kind", kind).Str("key", key).Msg("media uploaded")
	return key, url, nil
}

// ApplyWebhook records a callback delivery and notifies watchers.
func (s *Service) ApplyWebhook(ctx context.Context, evt *syncapi.WebhookEvent) error {
	if evt == nil {
		return fmt.Errorf("event is nil")
	}
	gen := evt.Generation
	_, err := s.records.UpdateStatus(ctx, gen.ID, string(gen.Status), gen.OutputURL, gen.Error)
	if err != nil && err != generationrepo.ErrNotFound {
		return err
	}
	if err == generationrepo.ErrNotFound {
		// Generation created outside this gateway; start tracking it now.
		putErr := s.records.Put(ctx, generationrepo.Record{
			ID:        gen.ID,
			Model:     gen.Model,
			Status:    string(gen.Status),
			OutputURL: gen.OutputURL,
			Error:     gen.Error,
		})
		if putErr != nil {
			s.logger.Warn().Str("generation_id", gen.ID).Err(putErr).Msg("record webhook generation failed")
		}
	}
	s.hub.Publish(Update{
		ID:        gen.ID,
		Status:    string(gen.Status),
		OutputURL: gen.OutputURL,
		Error:     gen.Error,
	})
	s.logger.Info().
		Str("generation_id", gen.ID).
		Str("event", evt.Event).
		Str("status", string(gen.Status)).
		Msg("webhook applied")
	return nil
}

// reconcile folds a freshly fetched generation into the local record and
// publishes an update when something changed.
func (s *Service) reconcile(ctx context.Context, gen *syncapi.Generation) {
	if gen == nil || strings.TrimSpace(gen.ID) == "" {
		return
	}
	prev, err := s.records.Get(ctx, gen.ID)
	if err != nil {
		return
	}
	if prev.Status == string(gen.Status) && prev.OutputURL == gen.OutputURL {
		return
	}
	if _, err := s.records.UpdateStatus(ctx, gen.ID, string(gen.Status), gen.OutputURL, gen.Error); err != nil {
		s.logger.Warn().Str("generation_id", gen.ID).Err(err).Msg("reconcile record failed")
		return
	}
	s.hub.Publish(Update{
		ID:        gen.ID,
		Status:    string(gen.Status),
		OutputURL: gen.OutputURL,
		Error:     gen.Error,
	})
}
