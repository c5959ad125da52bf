package handler

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
)

// Upload caps. Vars so tests can shrink them.
var (
	maxVideoBytes int64 = 512 << 20
	maxAudioBytes int64 = 64 << 20
)

// multipart spool threshold; larger parts go to temp files.
const multipartMemory = 32 << 20

// GenerationHandler serves the generation REST endpoints.
type GenerationHandler struct {
	svc      *generationsvc.Service
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewGenerationHandler(svc *generationsvc.Service, logger zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type createGenerationRequest struct {
	VideoURL string `json:"video_url" validate:"required,url"`
	AudioURL string `json:"audio_url" validate:"required,url"`
	Model    string `json:"model"`
}

// HandleRoot answers liveness probes and the curious.
func (h *GenerationHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the LipSync API.",
	})
}

// HandleCreate creates a generation from a pair of media URLs.
func (h *GenerationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	in.AudioURL = strings.TrimSpace(in.AudioURL)
	if err := h.validate.Struct(&in); err != nil {
		writeError(w, err)
		return
	}

	gen, err := h.svc.Create(r.Context(), generationsvc.CreateParams{
		VideoURL: in.VideoURL,
		AudioURL: in.AudioURL,
		Model:    in.Model,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create generation failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

// HandleGet returns one generation by id.
func (h *GenerationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	gen, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

// HandleList lists generations. ?source=local serves the gateway's own
// records instead of the remote listing.
func (h *GenerationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("source"), "local") {
		recs, err := h.svc.ListLocal(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"generations": recs})
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := h.svc.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleEstimateCost uploads both files and prices the prospective job.
func (h *GenerationHandler) HandleEstimateCost(w http.ResponseWriter, r *http.Request) {
	video, audio, model, err := h.parseUploadForm(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer video.close()
	defer audio.close()

	cost, err := h.svc.EstimateCost(r.Context(), video.upload, audio.upload, model)
	if err != nil {
		h.logger.Error().Err(err).Msg("estimate cost failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

// HandleUploadAndGenerate uploads both files and creates the generation in
// one request.
func (h *GenerationHandler) HandleUploadAndGenerate(w http.ResponseWriter, r *http.Request) {
	video, audio, model, err := h.parseUploadForm(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer video.close()
	defer audio.close()

	gen, err := h.svc.UploadAndCreate(r.Context(), video.upload, audio.upload, model, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("upload and generate failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

type formFile struct {
	upload generationsvc.Upload
	file   multipart.File
}

func (f *formFile) close() {
	if f != nil && f.file != nil {
		_ = f.file.Close()
	}
}

func (h *GenerationHandler) parseUploadForm(w http.ResponseWriter, r *http.Request) (video, audio *formFile, model string, err error) {
	// Cut oversize requests off at the wire instead of spooling them to
	// disk first. The extra MiB covers multipart framing and form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoBytes+maxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}
	video, err = formUpload(r, "video_file", maxVideoBytes)
	if err != nil {
		return nil, nil, "", err
	}
	audio, err = formUpload(r, "audio_file", maxAudioBytes)
	if err != nil {
		video.close()
		return nil, nil, "", err
	}
	model = strings.TrimSpace(r.FormValue("model"))
	return video, audio, model, nil
}

func formUpload(r *http.Request, field string, maxBytes int64) (*formFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	if header.Size > maxBytes {
		_ = file.Close()
		return nil, fmt.Errorf("%s exceeds the %d byte limit", field, maxBytes)
	}
	return &formFile{
		upload: generationsvc.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
			Size:        header.Size,
		},
		file: file,
	}, nil
}
