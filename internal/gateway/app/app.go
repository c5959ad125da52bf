package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/config"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/handler"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/server"
	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

type App struct {
	server *server.Server
}

func New(logger zerolog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Dependencies
	stores, err := initStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	clientOpts := []syncapi.Option{syncapi.WithLogger(logger)}
	if cfg.Sync.BaseURL != "" {
		clientOpts = append(clientOpts, syncapi.WithBaseURL(cfg.Sync.BaseURL))
	}
	client, err := syncapi.NewClient(cfg.Sync.APIKey, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sync client: %w", err)
	}

	svc := generationsvc.New(client.Generations, stores.media, stores.records,
		generationsvc.NewHub(), cfg.WebhookURL(), logger)

	generationHandler := handler.NewGenerationHandler(svc, logger)
	webhookHandler := handler.NewWebhookHandler(svc, cfg.Sync.WebhookSecret, logger)
	watchHandler := handler.NewWatchHandler(svc, logger)

	// Routing & Server
	mux := server.NewMux(generationHandler, webhookHandler, watchHandler, logger)
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server: srv,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
