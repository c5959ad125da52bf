package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	generationrepo "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/repository/generation"
	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/media"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

type fakeSyncAPI struct {
	createReq *syncapi.CreateGenerationRequest
	getErr    error
}

func (f *fakeSyncAPI) Create(_ context.Context, req syncapi.CreateGenerationRequest) (*syncapi.Generation, error) {
	f.createReq = &req
	return &syncapi.Generation{ID: "gen-1", Model: req.Model, Status: syncapi.StatusPending}, nil
}

func (f *fakeSyncAPI) Get(_ context.Context, id string) (*syncapi.Generation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &syncapi.Generation{ID: id, Status: syncapi.StatusCompleted}, nil
}

func (f *fakeSyncAPI) List(_ context.Context, _ *syncapi.ListOptions) (*syncapi.GenerationList, error) {
	return &syncapi.GenerationList{Generations: []syncapi.Generation{{ID: "gen-1"}}}, nil
}

func (f *fakeSyncAPI) EstimateCost(_ context.Context, req syncapi.CreateGenerationRequest) (*syncapi.CostEstimate, error) {
	return &syncapi.CostEstimate{
		Model:            req.Model,
		EstimatedCredits: decimal.NewFromInt(7),
		Currency:         "USD",
	}, nil
}

func newTestHandler(t *testing.T) (*GenerationHandler, *fakeSyncAPI, generationrepo.Store) {
	t.Helper()
	api := &fakeSyncAPI{}
	records := generationrepo.NewMemoryStore()
	store := media.NewMemoryStore("https://media.example.com")
	svc := generationsvc.New(api, store, records, generationsvc.NewHub(), "", zerolog.Nop())
	return NewGenerationHandler(svc, zerolog.Nop()), api, records
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return out
}

func TestHandleCreate(t *testing.T) {
	h, api, _ := newTestHandler(t)

	body := `{"video_url":"https://example.com/v.mp4","audio_url":"https://example.com/a.wav","model":"lipsync-2"}`
	req := httptest.NewRequest(http.MethodPost, "/generations", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	gen := decodeBody[syncapi.Generation](t, rr)
	if gen.ID != "gen-1" {
		t.Fatalf("unexpected generation: %+v", gen)
	}
	if api.createReq == nil || len(api.createReq.Input) != 2 {
		t.Fatalf("create request not forwarded: %+v", api.createReq)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	h, api, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing audio", `{"video_url":"https://example.com/v.mp4"}`},
		{"not a url", `{"video_url":"not-a-url","audio_url":"https://example.com/a.wav"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/generations", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.HandleCreate(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
	if api.createReq != nil {
		t.Fatalf("invalid request reached the remote API: %+v", api.createReq)
	}
}

func TestHandleGet(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/generations/gen-9", nil)
	req.SetPathValue("id", "gen-9")
	rr := httptest.NewRecorder()
	h.HandleGet(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	gen := decodeBody[syncapi.Generation](t, rr)
	if gen.ID != "gen-9" || gen.Status != syncapi.StatusCompleted {
		t.Fatalf("unexpected generation: %+v", gen)
	}
}

func TestHandleGetNotFound(t *testing.T) {
	h, api, _ := newTestHandler(t)
	api.getErr = syncapi.ErrGenerationNotFound

	req := httptest.NewRequest(http.MethodGet, "/generations/missing", nil)
	req.SetPathValue("id", "missing")
	rr := httptest.NewRecorder()
	h.HandleGet(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleListLocal(t *testing.T) {
	h, _, records := newTestHandler(t)
	if err := records.Put(context.Background(), generationrepo.Record{ID: "gen-local", Status: "PENDING"}); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/generations?source=local", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	out := decodeBody[struct {
		Generations []generationrepo.Record `json:"generations"`
	}](t, rr)
	if len(out.Generations) != 1 || out.Generations[0].ID != "gen-local" {
		t.Fatalf("unexpected listing: %+v", out)
	}
}

func TestHandleListBadLimit(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/generations?limit=abc", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func multipartBody(t *testing.T, model string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("video_file", "clip.mp4")
	if err != nil {
		t.Fatalf("create video part failed: %v", err)
	}
	part.Write([]byte("vvv"))
	part, err = mw.CreateFormFile("audio_file", "voice.wav")
	if err != nil {
		t.Fatalf("create audio part failed: %v", err)
	}
	part.Write([]byte("aaa"))
	if model != "" {
		mw.WriteField("model", model)
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestHandleUploadAndGenerate(t *testing.T) {
	h, api, _ := newTestHandler(t)

	buf, contentType := multipartBody(t, "lipsync-2")
	req := httptest.NewRequest(http.MethodPost, "/upload-and-generate", buf)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.HandleUploadAndGenerate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	gen := decodeBody[syncapi.Generation](t, rr)
	if gen.ID != "gen-1" {
		t.Fatalf("unexpected generation: %+v", gen)
	}
	video, ok := api.createReq.Input[0].(syncapi.VideoInput)
	if !ok || !strings.HasPrefix(video.URL, "https://media.example.com/uploads/") {
		t.Fatalf("uploaded video url not used: %+v", api.createReq.Input[0])
	}
}

func TestHandleUploadAndGenerateFileTooLarge(t *testing.T) {
	h, api, _ := newTestHandler(t)

	oldMax := maxVideoBytes
	maxVideoBytes = 8
	t.Cleanup(func() { maxVideoBytes = oldMax })

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("video_file", "clip.mp4")
	if err != nil {
		t.Fatalf("create video part failed: %v", err)
	}
	part.Write(bytes.Repeat([]byte("v"), 64))
	part, err = mw.CreateFormFile("audio_file", "voice.wav")
	if err != nil {
		t.Fatalf("create audio part failed: %v", err)
	}
	part.Write([]byte("aaa"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-and-generate", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.HandleUploadAndGenerate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized video, got %d: %s", rr.Code, rr.Body.String())
	}
	if api.createReq != nil {
		t.Fatalf("oversized upload reached the remote API")
	}
}

func TestHandleUploadAndGenerateBodyTooLarge(t *testing.T) {
	h, api, _ := newTestHandler(t)

	oldVideo, oldAudio := maxVideoBytes, maxAudioBytes
	maxVideoBytes, maxAudioBytes = 16, 16
	t.Cleanup(func() { maxVideoBytes, maxAudioBytes = oldVideo, oldAudio })

	// Larger than video cap + audio cap + framing slack; must be refused
	// while reading, not spooled in full.
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("video_file", "clip.mp4")
	if err != nil {
		t.Fatalf("create part failed: %v", err)
	}
	part.Write(bytes.Repeat([]byte("v"), 2<<20))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-and-generate", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.HandleUploadAndGenerate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d: %s", rr.Code, rr.Body.String())
	}
	if api.createReq != nil {
		t.Fatalf("oversized request reached the remote API")
	}
}

func TestHandleUploadAndGenerateMissingFile(t *testing.T) {
	h, _, _ := newTestHandler(t)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("video_file", "clip.mp4")
	if err != nil {
		t.Fatalf("create part failed: %v", err)
	}
	part.Write([]byte("vvv"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-and-generate", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.HandleUploadAndGenerate(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleEstimateCost(t *testing.T) {
	h, _, _ := newTestHandler(t)

	buf, contentType := multipartBody(t, "")
	req := httptest.NewRequest(http.MethodPost, "/generations/estimate-cost", buf)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.HandleEstimateCost(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	est := decodeBody[syncapi.CostEstimate](t, rr)
	if !est.EstimatedCredits.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected estimate: %+v", est)
	}
}

func TestHandleRoot(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.HandleRoot(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	out := decodeBody[map[string]string](t, rr)
	if out["message"] == "" {
		t.Fatalf("expected welcome message, got %v", out)
	}
}
