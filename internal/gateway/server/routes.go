package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/handler"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/middleware"
)

func NewMux(
	generationHandler *handler.GenerationHandler,
	webhookHandler *handler.WebhookHandler,
	watchHandler *handler.WatchHandler,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", generationHandler.HandleRoot)
	mux.HandleFunc("POST /generations", generationHandler.HandleCreate)
	mux.HandleFunc("GET /generations", generationHandler.HandleList)
	mux.HandleFunc("GET /generations/watch", watchHandler.HandleWatchWS)
	mux.HandleFunc("GET /generations/{id}", generationHandler.HandleGet)
	mux.HandleFunc("POST /generations/estimate-cost", generationHandler.HandleEstimateCost)
	mux.HandleFunc("POST /upload-and-generate", generationHandler.HandleUploadAndGenerate)
	mux.HandleFunc("POST /webhooks/sync", webhookHandler.HandleSyncWebhook)

	// Middleware
	return middleware.CORS(nil, middleware.Logging(logger, mux))
}
