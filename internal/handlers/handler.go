// Package handlers drives the Telegram cover wizard on top of the studio
// orchestrator.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/i18n"
	"bookcover-studio/internal/keyauth"
	"bookcover-studio/internal/mediagroup"
	"bookcover-studio/internal/studio"
	"bookcover-studio/internal/telegram"
)

type Options struct {
	Telegram *telegram.Client
	Studio   *studio.Studio
	Keys     *keyauth.KeyStore
	Logger   *slog.Logger
}

type Handler struct {
	tg         *telegram.Client
	studio     *studio.Studio
	keys       *keyauth.KeyStore
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator

	mu sync.Mutex
	ui map[string]*uiState
}

// uiState is the wizard's presentation state, separate from the pipeline
// session it renders.
type uiState struct {
	MessageID int
	Awaiting  string // "" | "topic" | "author" | "target" | "edit"
	Menu      string // "main" | "market" | "category" | "language"
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:     opts.Telegram,
		studio: opts.Studio,
		keys:   opts.Keys,
		logger: logger,
		ui:     make(map[string]*uiState),
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func (h *Handler) uiFor(key string) *uiState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.ui[key]
	if !ok {
		st = &uiState{Menu: "main"}
		h.ui[key] = st
	}
	return st
}

func (h *Handler) updateUI(key string, fn func(*uiState)) uiState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.ui[key]
	if !ok {
		st = &uiState{Menu: "main"}
		h.ui[key] = st
	}
	fn(st)
	return *st
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}
	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}
	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}
	return nil
}

// HandleAlbum receives a debounced photo album; only the first photo is
// used as the new cover.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	if len(album.FileIDs) == 0 {
		return
	}
	if err := h.adoptUploadedCover(ctx, album.ChatID, album.UserID, album.FileIDs[0], album.Caption); err != nil {
		h.logger.Error("album processing failed", "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	key := sessionKey(chatID, userID)

	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID,
			"📚 Book Cover Studio\n\n"+
				"I walk you through creating a book cover, its metadata and an optional promo video.\n\n"+
				"Commands:\n"+
				"/cover - start the cover wizard\n"+
				"/setkey <key> - select your API key\n"+
				"/reset - start over\n"+
				"/cancel - cancel the pending input\n"+
				"/help - help")
	case "help":
		return h.tg.SendText(chatID,
			"📚 Help\n\n"+
				"/cover opens the wizard: fill in topic and author, pick marketplace, "+
				"category and language, then press Generate.\n"+
				"After generation you can select one of the three covers, refine it with "+
				"an instruction, create a promo video or export a print-ready PNG.\n"+
				"Send a photo to use your own draft as the current cover; its caption is "+
				"applied as an edit instruction.")
	case "cover":
		return h.startWizard(chatID, userID)
	case "setkey":
		apiKey := strings.TrimSpace(msg.CommandArguments())
		if apiKey == "" {
			return h.tg.SendText(chatID, "Usage: /setkey <your API key>")
		}
		h.keys.Set(apiKey)
		return h.tg.SendText(chatID, "🔑 API key selected.")
	case "cancel":
		h.updateUI(key, func(st *uiState) { st.Awaiting = "" })
		if err := h.tg.SendText(chatID, "Cancelled."); err != nil {
			return err
		}
		return h.renderCard(chatID, userID, 0, true)
	case "reset":
		h.studio.Reset(key)
		h.updateUI(key, func(st *uiState) { st.Awaiting = ""; st.Menu = "main" })
		return h.startWizard(chatID, userID)
	default:
		return h.tg.SendText(chatID, "Unknown command, try /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	key := sessionKey(chatID, userID)
	awaiting := h.uiFor(key).Awaiting

	switch awaiting {
	case "topic":
		h.studio.UpdateMetadata(key, func(m *cover.BookMetadata) { m.Topic = text })
	case "author":
		h.studio.UpdateMetadata(key, func(m *cover.BookMetadata) { m.Author = text })
	case "target":
		h.studio.UpdateMetadata(key, func(m *cover.BookMetadata) { m.TargetMarket = text })
	case "edit":
		h.updateUI(key, func(st *uiState) { st.Awaiting = "" })
		return h.runEdit(ctx, chatID, userID, text)
	default:
		return h.tg.SendText(chatID, "Use /cover to open the wizard, or /help.")
	}

	h.updateUI(key, func(st *uiState) { st.Awaiting = "" })
	return h.renderCard(chatID, userID, 0, true)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	return h.adoptUploadedCover(ctx, chatID, userID, photo.FileID, msg.Caption)
}

// adoptUploadedCover replaces the current cover with a user-provided
// draft. A non-empty caption is applied as an edit instruction on top.
func (h *Handler) adoptUploadedCover(ctx context.Context, chatID, userID int64, fileID, caption string) error {
	key := sessionKey(chatID, userID)
	sess := h.studio.Session(key)

	h.tg.SendTyping(chatID)
	dataURL, err := h.tg.DownloadFileDataURL(ctx, fileID)
	if err != nil {
		h.logger.Error("cover upload download failed", "err", err)
		return h.tg.SendText(chatID, i18n.T(sess.Language, "err_generic"))
	}

	h.studio.AdoptCover(key, dataURL)

	if strings.TrimSpace(caption) != "" {
		return h.runEdit(ctx, chatID, userID, caption)
	}

	if err := h.tg.SendText(chatID, "🖼 Using your upload as the current cover."); err != nil {
		return err
	}
	return h.renderCard(chatID, userID, 0, true)
}
