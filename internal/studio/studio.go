// Package studio drives the multi-stage creation flow: research, text and
// cover generation, on-demand edits, the promotional video and the final
// export. Every failure is reduced at this boundary to a localized,
// human-readable message; the stage stays wherever it last advanced.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/export"
	"bookcover-studio/internal/i18n"
	"bookcover-studio/internal/keyauth"
)

// Generator is the remote API adapter the studio orchestrates.
type Generator interface {
	ResearchTrends(ctx context.Context, req cover.ResearchRequest) (cover.GroundingData, error)
	GenerateBookText(ctx context.Context, req cover.TextRequest) (cover.BookText, error)
	GenerateCoverImages(ctx context.Context, prompt string) ([]string, error)
	EditCoverImage(ctx context.Context, imageDataURL, instruction string) (string, error)
	GenerateVideo(ctx context.Context, imageDataURL, prompt string) ([]byte, error)
}

// UserError carries a message already localized for the session's
// language. Anything else surfacing from the studio is unexpected.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

func userErr(lang, key string) error {
	return &UserError{Message: i18n.T(lang, key)}
}

// generationErr reduces an adapter failure to a localized message. A
// permission denial surviving the guard's retry means no usable key is
// selected, which gets its own message.
func generationErr(lang string, err error) error {
	if keyauth.IsPermissionDenied(err) {
		return userErr(lang, "err_no_key")
	}
	return userErr(lang, "err_generic")
}

type Options struct {
	Generator Generator
	Sessions  *cover.Store
	Logger    *slog.Logger
}

type Studio struct {
	gen      Generator
	sessions *cover.Store
	logger   *slog.Logger
}

func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Studio{
		gen:      opts.Generator,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

func (s *Studio) Session(id string) cover.Session {
	return s.sessions.Get(id)
}

func (s *Studio) SetLanguage(id, language string) cover.Session {
	return s.sessions.Update(id, func(sess *cover.Session) {
		sess.Language = i18n.Normalize(language)
	})
}

func (s *Studio) UpdateMetadata(id string, fn func(*cover.BookMetadata)) cover.Session {
	return s.sessions.Update(id, func(sess *cover.Session) {
		if fn != nil {
			fn(&sess.Metadata)
		}
	})
}

func (s *Studio) Reset(id string) cover.Session {
	return s.sessions.Reset(id)
}

// AdoptCover installs a user-provided image as the current cover,
// appending it as the only candidate when no batch exists yet.
func (s *Studio) AdoptCover(id, imageDataURL string) cover.Session {
	return s.sessions.Update(id, func(sess *cover.Session) {
		if len(sess.Images) == 0 {
			sess.Images = []string{imageDataURL}
			sess.SelectedIndex = 0
			if sess.Stage == cover.StageDetails || sess.Stage == cover.StageResearch {
				sess.Stage = cover.StageGeneration
			}
			return
		}
		sess.Images[sess.SelectedIndex] = imageDataURL
	})
}

// SelectImage marks one candidate as the current cover. Out-of-range
// indices are ignored.
func (s *Studio) SelectImage(id string, index int) cover.Session {
	return s.sessions.Update(id, func(sess *cover.Session) {
		if index >= 0 && index < len(sess.Images) {
			sess.SelectedIndex = index
		}
	})
}

// StartProcess runs the main chain: research, text merge, cover batch.
// Preconditions: non-empty topic and author; no other step in flight.
// On failure the stage is left wherever it last advanced and the loading
// flag is cleared in all paths.
func (s *Studio) StartProcess(ctx context.Context, id string) (cover.Session, error) {
	sess := s.sessions.Get(id)
	lang := sess.Language

	if strings.TrimSpace(sess.Metadata.Topic) == "" || strings.TrimSpace(sess.Metadata.Author) == "" {
		return sess, userErr(lang, "err_topic_author")
	}

	if !s.sessions.BeginWork(id) {
		return sess, userErr(lang, "err_busy")
	}
	defer s.sessions.EndWork(id)

	sess = s.sessions.Update(id, func(sess *cover.Session) {
		sess.Stage = cover.StageResearch
	})
	meta := sess.Metadata

	grounding, err := s.gen.ResearchTrends(ctx, cover.ResearchRequest{
		Category:      meta.Category,
		Topic:         meta.Topic,
		TargetMarket:  meta.TargetMarket,
		MarketplaceID: meta.MarketplaceID,
		Language:      lang,
	})
	if err != nil {
		// The adapter degrades research failures itself; reaching this
		// branch means something unexpected, treat it the same way.
		s.logger.Warn("research failed, proceeding with fallback", "err", err)
		grounding = cover.FallbackGrounding(lang)
	}

	text, err := s.gen.GenerateBookText(ctx, cover.TextRequest{
		Topic:    meta.Topic,
		Category: meta.Category,
		Author:   meta.Author,
		Language: lang,
	})
	if err != nil {
		s.logger.Warn("text generation failed, using placeholder", "err", err)
		text = cover.PlaceholderText()
	}

	sess = s.sessions.Update(id, func(sess *cover.Session) {
		sess.Grounding = grounding
		sess.Metadata.Title = text.Title
		sess.Metadata.Subtitle = text.Subtitle
		sess.Metadata.Description = text.Description
	})

	images, err := s.gen.GenerateCoverImages(ctx, cover.BuildImagePrompt(sess.Metadata, grounding))
	if err != nil {
		s.logger.Error("cover generation failed", "err", err)
		return s.sessions.Get(id), generationErr(lang, err)
	}

	return s.sessions.Update(id, func(sess *cover.Session) {
		sess.Images = images
		sess.SelectedIndex = 0
		sess.Stage = cover.StageGeneration
	}), nil
}

// EditImage replaces the selected cover with the edited result. A missing
// image or empty instruction is a no-op.
func (s *Studio) EditImage(ctx context.Context, id, instruction string) (cover.Session, error) {
	sess := s.sessions.Get(id)
	lang := sess.Language

	if sess.SelectedImage() == "" || strings.TrimSpace(instruction) == "" {
		return sess, nil
	}

	if !s.sessions.BeginWork(id) {
		return sess, userErr(lang, "err_busy")
	}
	defer s.sessions.EndWork(id)

	edited, err := s.gen.EditCoverImage(ctx, sess.SelectedImage(), instruction)
	if err != nil {
		s.logger.Error("cover edit failed", "err", err)
		return s.sessions.Get(id), generationErr(lang, err)
	}

	return s.sessions.Update(id, func(sess *cover.Session) {
		if sess.SelectedIndex >= 0 && sess.SelectedIndex < len(sess.Images) {
			sess.Images[sess.SelectedIndex] = edited
		}
	}), nil
}

// CreateVideo produces the promotional video for the selected cover and
// advances the stage to Video. A missing image is a no-op.
func (s *Studio) CreateVideo(ctx context.Context, id string) (cover.Session, error) {
	sess := s.sessions.Get(id)
	lang := sess.Language

	if sess.SelectedImage() == "" {
		return sess, nil
	}

	if !s.sessions.BeginWork(id) {
		return sess, userErr(lang, "err_busy")
	}
	defer s.sessions.EndWork(id)

	video, err := s.gen.GenerateVideo(ctx, sess.SelectedImage(), cover.BuildVideoPrompt(sess.Metadata))
	if err != nil {
		s.logger.Error("video generation failed", "err", err)
		return s.sessions.Get(id), generationErr(lang, err)
	}

	return s.sessions.Update(id, func(sess *cover.Session) {
		sess.Video = video
		sess.Stage = cover.StageVideo
	}), nil
}

// ExportCover rasterizes the selected cover at 3x and derives the download
// filename from the title.
func (s *Studio) ExportCover(id string) (filename string, data []byte, err error) {
	sess := s.sessions.Get(id)
	lang := sess.Language

	img := sess.SelectedImage()
	if img == "" {
		return "", nil, userErr(lang, "err_no_image")
	}

	data, err = export.CoverPNG(img)
	if err != nil {
		s.logger.Error("cover export failed", "err", err)
		return "", nil, userErr(lang, "err_export")
	}
	return export.Filename(sess.Metadata.Title), data, nil
}

// IsUserError reports whether err is a message meant for the user.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
