package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/keyauth"
	"bookcover-studio/internal/studio"
)

type stubGenerator struct{}

func (stubGenerator) ResearchTrends(ctx context.Context, req cover.ResearchRequest) (cover.GroundingData, error) {
	return cover.GroundingData{Trends: "trends"}, nil
}

func (stubGenerator) GenerateBookText(ctx context.Context, req cover.TextRequest) (cover.BookText, error) {
	return cover.BookText{Title: "Deep Focus"}, nil
}

func (stubGenerator) GenerateCoverImages(ctx context.Context, prompt string) ([]string, error) {
	return []string{coverDataURL(), coverDataURL(), coverDataURL()}, nil
}

func (stubGenerator) EditCoverImage(ctx context.Context, imageDataURL, instruction string) (string, error) {
	return coverDataURL(), nil
}

func (stubGenerator) GenerateVideo(ctx context.Context, imageDataURL, prompt string) ([]byte, error) {
	return []byte("mp4"), nil
}

func coverDataURL() string {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestServer(t *testing.T) (*server, *chi.Mux) {
	t.Helper()

	s := &server{
		studio: studio.New(studio.Options{
			Generator: stubGenerator{},
			Sessions:  cover.NewStore(),
		}),
		keys:            keyauth.NewKeyStore(""),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultLanguage: "en",
		requestTimeout:  time.Second,
		videoTimeout:    time.Second,
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/metadata", s.handleUpdateMetadata)
			r.Post("/start", s.handleStart)
			r.Post("/select", s.handleSelect)
			r.Post("/edit", s.handleEdit)
			r.Post("/video", s.handleVideo)
			r.Post("/reset", s.handleReset)
			r.Get("/export", s.handleExport)
			r.Get("/video/file", s.handleVideoFile)
		})
		r.Get("/catalog", s.handleCatalog)
		r.Get("/key", s.handleGetKey)
		r.Put("/key", s.handlePutKey)
	})

	return s, r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var view sessionView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	return view
}

func TestCreateAndFetchSession(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]string{"language": "de"})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeSession(t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "de", created.Language)
	assert.Equal(t, "details", created.Stage)

	rec = doJSON(t, r, http.MethodGet, "/api/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeSession(t, rec).ID)
}

func TestMetadataValidation(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPut, "/api/sessions/s1/metadata", map[string]string{"marketplaceId": "XX"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/sessions/s1/metadata", map[string]string{"language": "xx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/sessions/s1/metadata", map[string]string{
		"marketplaceId": "DE",
		"category":      "thriller",
		"topic":         "lighthouse",
		"author":        "Jane Doe",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeSession(t, rec)
	assert.Equal(t, "DE", view.Metadata.MarketplaceID)
	assert.Equal(t, "Jane Doe", view.Metadata.Author)
}

func TestStartRequiresDetails(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/api/sessions/s1/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFullPipelineOverHTTP(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPut, "/api/sessions/s1/metadata", map[string]string{
		"topic": "lighthouse", "author": "Jane Doe",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/sessions/s1/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeSession(t, rec)
	assert.Equal(t, "generation", view.Stage)
	assert.Len(t, view.Images, 3)
	assert.Equal(t, 0, view.SelectedIndex)
	assert.Equal(t, "Deep Focus", view.Metadata.Title)

	rec = doJSON(t, r, http.MethodPost, "/api/sessions/s1/select", map[string]int{"index": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeSession(t, rec).SelectedIndex)

	rec = doJSON(t, r, http.MethodPost, "/api/sessions/s1/edit", map[string]string{"instruction": "darker"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/sessions/s1/video", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeSession(t, rec)
	assert.Equal(t, "video", view.Stage)
	assert.True(t, view.HasVideo)

	rec = doJSON(t, r, http.MethodGet, "/api/sessions/s1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "deep-focus-cover.png"))

	rec = doJSON(t, r, http.MethodGet, "/api/sessions/s1/video/file", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp4", rec.Body.String())
}

func TestEditRequiresInstruction(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/api/sessions/s1/edit", map[string]string{"instruction": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalog(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog struct {
		Marketplaces []cover.NamedOption `json:"marketplaces"`
		Categories   []cover.NamedOption `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&catalog))
	assert.NotEmpty(t, catalog.Marketplaces)
	assert.NotEmpty(t, catalog.Categories)
}

func TestKeyRoundTrip(t *testing.T) {
	s, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "false"))

	rec = doJSON(t, r, http.MethodPut, "/api/key", map[string]string{"key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", s.keys.Key())

	rec = doJSON(t, r, http.MethodPut, "/api/key", map[string]string{"key": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideoFileMissing(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/sessions/s1/video/file", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
