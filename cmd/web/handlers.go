package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/i18n"
	"bookcover-studio/internal/keyauth"
	"bookcover-studio/internal/studio"
)

type server struct {
	studio          *studio.Studio
	keys            *keyauth.KeyStore
	logger          *slog.Logger
	defaultLanguage string
	requestTimeout  time.Duration
	videoTimeout    time.Duration
}

type apiError struct {
	Error string `json:"error"`
}

type sessionView struct {
	ID            string               `json:"id"`
	Language      string               `json:"language"`
	Stage         string               `json:"stage"`
	Metadata      cover.BookMetadata   `json:"metadata"`
	Grounding     cover.GroundingData  `json:"grounding"`
	Images        []string             `json:"images"`
	SelectedIndex int                  `json:"selectedIndex"`
	HasVideo      bool                 `json:"hasVideo"`
	Loading       bool                 `json:"loading"`
}

func viewOf(sess cover.Session) sessionView {
	images := sess.Images
	if images == nil {
		images = []string{}
	}
	return sessionView{
		ID:            sess.ID,
		Language:      sess.Language,
		Stage:         string(sess.Stage),
		Metadata:      sess.Metadata,
		Grounding:     sess.Grounding,
		Images:        images,
		SelectedIndex: sess.SelectedIndex,
		HasVideo:      len(sess.Video) > 0,
		Loading:       sess.Loading,
	}
}

type createSessionRequest struct {
	Language string `json:"language"`
}

type metadataRequest struct {
	MarketplaceID string `json:"marketplaceId"`
	Category      string `json:"category"`
	TargetMarket  string `json:"targetMarket"`
	Topic         string `json:"topic"`
	Author        string `json:"author"`
	Language      string `json:"language"`
}

func (r metadataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MarketplaceID, validation.By(optionalKey(cover.IsMarketplace, "unknown marketplace"))),
		validation.Field(&r.Category, validation.By(optionalKey(cover.IsCategory, "unknown category"))),
		validation.Field(&r.Language, validation.By(optionalKey(i18n.IsSupported, "unsupported language"))),
		validation.Field(&r.Topic, validation.Length(0, 500)),
		validation.Field(&r.Author, validation.Length(0, 200)),
		validation.Field(&r.TargetMarket, validation.Length(0, 500)),
	)
}

func optionalKey(valid func(string) bool, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" || valid(s) {
			return nil
		}
		return fmt.Errorf("%s", msg)
	}
}

type selectRequest struct {
	Index int `json:"index"`
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

func (r editRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Instruction, validation.Required, validation.Length(1, 2000)),
	)
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	lang := req.Language
	if lang == "" {
		lang = s.defaultLanguage
	}

	id := uuid.NewString()
	sess := s.studio.SetLanguage(id, lang)
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.studio.Session(chi.URLParam(r, "id"))))
}

func (s *server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	id := chi.URLParam(r, "id")
	if req.Language != "" {
		s.studio.SetLanguage(id, req.Language)
	}
	sess := s.studio.UpdateMetadata(id, func(m *cover.BookMetadata) {
		if req.MarketplaceID != "" {
			m.MarketplaceID = req.MarketplaceID
		}
		if req.Category != "" {
			m.Category = req.Category
		}
		m.TargetMarket = strings.TrimSpace(req.TargetMarket)
		if req.Topic != "" {
			m.Topic = strings.TrimSpace(req.Topic)
		}
		if req.Author != "" {
			m.Author = strings.TrimSpace(req.Author)
		}
	})
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r, s.requestTimeout)
	defer cancel()

	sess, err := s.studio.StartProcess(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStudioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s.studio.SelectImage(chi.URLParam(r, "id"), req.Index)))
}

func (s *server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := s.requestContext(r, s.requestTimeout)
	defer cancel()

	sess, err := s.studio.EditImage(ctx, chi.URLParam(r, "id"), req.Instruction)
	if err != nil {
		s.writeStudioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleVideo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r, s.videoTimeout)
	defer cancel()

	sess, err := s.studio.CreateVideo(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStudioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.studio.Reset(chi.URLParam(r, "id"))))
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.studio.ExportCover(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStudioError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *server) handleVideoFile(w http.ResponseWriter, r *http.Request) {
	sess := s.studio.Session(chi.URLParam(r, "id"))
	if len(sess.Video) == 0 {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no video"})
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="promo.mp4"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sess.Video)
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"marketplaces": cover.Marketplaces(),
		"categories":   cover.Categories(),
		"languages":    i18n.Supported(),
	})
}

func (s *server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"hasKey": s.keys.Key() != ""})
}

func (s *server) handlePutKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "key is required"})
		return
	}
	s.keys.Set(key)
	writeJSON(w, http.StatusOK, map[string]bool{"hasKey": true})
}

func (s *server) requestContext(r *http.Request, timeout time.Duration) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeout)
}

func (s *server) writeStudioError(w http.ResponseWriter, err error) {
	if studio.IsUserError(err) {
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	}
	s.logger.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
