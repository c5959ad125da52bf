package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/config"
	generationrepo "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/repository/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/media"
)

type gatewayStores struct {
	media   media.Store
	records generationrepo.Store
}

func initStores(cfg *config.Config, logger zerolog.Logger) (*gatewayStores, error) {
	mediaStore, err := chooseMediaStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &gatewayStores{
		media:   mediaStore,
		records: chooseRecordStore(cfg, logger),
	}, nil
}

func chooseMediaStore(cfg *config.Config, logger zerolog.Logger) (media.Store, error) {
	var origin media.Store
	if cfg.Media.CanUseS3() {
		s3Store, err := media.NewS3Store(media.S3Config{
			Endpoint:      cfg.Media.Endpoint,
			Region:        cfg.Media.Region,
			AccessKey:     cfg.Media.AccessKey,
			SecretKey:     cfg.Media.SecretKey,
			Bucket:        cfg.Media.Bucket,
			UseSSL:        cfg.Media.UseSSL,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media s3 store: %w", err)
		}
		logger.Info().Str("bucket", cfg.Media.Bucket).Str("endpoint", cfg.Media.Endpoint).Msg("media store: s3")
		origin = s3Store
	} else {
		if cfg.Media.Enabled {
			logger.Warn().Msg("media store: using in-memory fallback (s3 config incomplete)")
		}
		origin = media.NewMemoryStore(cfg.PublicBaseURL + "/media")
	}
	return media.NewCachedStore(origin, media.DefaultCacheConfig()), nil
}

func chooseRecordStore(cfg *config.Config, logger zerolog.Logger) generationrepo.Store {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		store, err := generationrepo.NewPostgresStore(dsn)
		if err == nil {
			logger.Info().Msg("generation records: postgres")
			return store
		}
		logger.Warn().Err(err).Msg("generation records: postgres unavailable, using memory store")
	}
	return generationrepo.NewMemoryStore()
}
