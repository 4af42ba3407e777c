package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/i18n"
	"bookcover-studio/internal/studio"
)

const callbackPrefix = "cv"

// IsVideoCallback reports whether callback data would start a video
// render, which runs far longer than any other step.
func IsVideoCallback(data string) bool {
	parts := strings.Split(strings.TrimSpace(data), ":")
	return len(parts) >= 3 && parts[0] == callbackPrefix && parts[2] == "video"
}

func (h *Handler) startWizard(chatID, userID int64) error {
	key := sessionKey(chatID, userID)
	st := h.studio.Session(key)

	h.updateUI(key, func(ui *uiState) {
		ui.Awaiting = ""
		ui.Menu = "main"
	})

	msgID, err := h.tg.SendTextWithKeyboard(chatID, cardText(st), cardKeyboard(userID, st, "main"))
	if err != nil {
		return err
	}
	h.updateUI(key, func(ui *uiState) { ui.MessageID = msgID })
	return nil
}

func (h *Handler) renderCard(chatID, userID int64, messageID int, edit bool) error {
	key := sessionKey(chatID, userID)
	sess := h.studio.Session(key)
	ui := h.uiFor(key)

	if messageID == 0 {
		messageID = ui.MessageID
	}

	text := cardText(sess)
	kb := cardKeyboard(userID, sess, ui.Menu)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.updateUI(key, func(ui *uiState) { ui.MessageID = msgID })
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}

	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		return h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	key := sessionKey(chatID, ownerID)

	h.updateUI(key, func(ui *uiState) { ui.MessageID = msgID })

	switch action {
	case "menu":
		if len(args) >= 1 {
			h.updateUI(key, func(ui *uiState) { ui.Menu = args[0] })
		}
	case "market":
		if len(args) >= 1 && cover.IsMarketplace(args[0]) {
			h.studio.UpdateMetadata(key, func(m *cover.BookMetadata) { m.MarketplaceID = args[0] })
		}
		h.updateUI(key, func(ui *uiState) { ui.Menu = "main" })
	case "cat":
		if len(args) >= 1 && cover.IsCategory(args[0]) {
			h.studio.UpdateMetadata(key, func(m *cover.BookMetadata) { m.Category = args[0] })
		}
		h.updateUI(key, func(ui *uiState) { ui.Menu = "main" })
	case "lang":
		if len(args) >= 1 {
			h.studio.SetLanguage(key, args[0])
		}
		h.updateUI(key, func(ui *uiState) { ui.Menu = "main" })
	case "ask":
		if len(args) >= 1 {
			h.updateUI(key, func(ui *uiState) { ui.Awaiting = args[0] })
			_ = h.tg.AnswerCallback(q.ID, "Send it as a message.", false)
			prompts := map[string]string{
				"topic":  "📖 Send the book topic.",
				"author": "✍️ Send the author name.",
				"target": "🎯 Describe the target audience (free text).",
			}
			if p, ok := prompts[args[0]]; ok {
				_ = h.tg.SendText(chatID, p+" (cancel: /cancel)")
			}
		}
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, i18n.T(h.studio.Session(key).Language, "generation_running"), false)
		if err := h.runGenerate(ctx, chatID, ownerID); err != nil {
			return err
		}
	case "select":
		if len(args) >= 1 {
			if idx, err := strconv.Atoi(args[0]); err == nil {
				h.studio.SelectImage(key, idx)
				_ = h.tg.AnswerCallback(q.ID, fmt.Sprintf("Cover %d selected.", idx+1), false)
			}
		}
	case "edit":
		h.updateUI(key, func(ui *uiState) { ui.Awaiting = "edit" })
		_ = h.tg.AnswerCallback(q.ID, "Send the edit instruction.", false)
		_ = h.tg.SendText(chatID, "✏️ Describe the change to the selected cover. (cancel: /cancel)")
	case "video":
		_ = h.tg.AnswerCallback(q.ID, "Rendering video…", false)
		if err := h.runVideo(ctx, chatID, ownerID); err != nil {
			return err
		}
	case "export":
		_ = h.tg.AnswerCallback(q.ID, "Exporting…", false)
		if err := h.runExport(chatID, ownerID); err != nil {
			return err
		}
	case "reset":
		h.studio.Reset(key)
		h.updateUI(key, func(ui *uiState) { ui.Awaiting = ""; ui.Menu = "main" })
	case "close":
		h.updateUI(key, func(ui *uiState) { ui.Awaiting = ""; ui.Menu = "main" })
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	return h.renderCard(chatID, ownerID, msgID, true)
}

func (h *Handler) runGenerate(ctx context.Context, chatID, userID int64) error {
	key := sessionKey(chatID, userID)
	lang := h.studio.Session(key).Language

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, i18n.T(lang, "research_running"))

	sess, err := h.studio.StartProcess(ctx, key)
	if err != nil {
		if !studio.IsUserError(err) {
			h.logger.Error("start process failed", "err", err)
			return h.tg.SendText(chatID, i18n.T(lang, "err_generic"))
		}
		return h.tg.SendText(chatID, err.Error())
	}

	if trends := strings.TrimSpace(sess.Grounding.Trends); trends != "" {
		summary := "🔎 " + trends
		for _, ref := range sess.Grounding.References {
			summary += fmt.Sprintf("\n• %s — %s: %s", ref.Title, ref.Author, ref.VisualHook)
		}
		if err := h.tg.SendText(chatID, summary); err != nil {
			return err
		}
	}

	for i, img := range sess.Images {
		caption := fmt.Sprintf("Cover %d/%d", i+1, len(sess.Images))
		if i == 0 {
			caption += " (selected)"
		}
		if err := h.tg.SendPhotoDataURL(chatID, img, caption); err != nil {
			return err
		}
	}

	return h.tg.SendText(chatID, i18n.T(sess.Language, "covers_ready"))
}

func (h *Handler) runEdit(ctx context.Context, chatID, userID int64, instruction string) error {
	key := sessionKey(chatID, userID)
	sess := h.studio.Session(key)

	if sess.SelectedImage() == "" {
		return h.tg.SendText(chatID, i18n.T(sess.Language, "err_no_image"))
	}

	h.tg.SendTyping(chatID)
	sess, err := h.studio.EditImage(ctx, key, instruction)
	if err != nil {
		return h.tg.SendText(chatID, err.Error())
	}

	if err := h.tg.SendPhotoDataURL(chatID, sess.SelectedImage(), "✏️ Edited cover"); err != nil {
		return err
	}
	return h.renderCard(chatID, userID, 0, true)
}

func (h *Handler) runVideo(ctx context.Context, chatID, userID int64) error {
	key := sessionKey(chatID, userID)
	sess := h.studio.Session(key)

	if sess.SelectedImage() == "" {
		return h.tg.SendText(chatID, i18n.T(sess.Language, "err_no_image"))
	}

	_ = h.tg.SendText(chatID, i18n.T(sess.Language, "video_running"))
	h.tg.SendUploadingVideo(chatID)

	sess, err := h.studio.CreateVideo(ctx, key)
	if err != nil {
		return h.tg.SendText(chatID, err.Error())
	}

	return h.tg.SendVideoBytes(chatID, sess.Video, i18n.T(sess.Language, "video_ready"))
}

func (h *Handler) runExport(chatID, userID int64) error {
	key := sessionKey(chatID, userID)

	name, data, err := h.studio.ExportCover(key)
	if err != nil {
		return h.tg.SendText(chatID, err.Error())
	}
	return h.tg.SendDocumentBytes(chatID, name, data, "⬇️ Print-ready cover, 3x resolution")
}

func cardText(sess cover.Session) string {
	var b strings.Builder

	b.WriteString("📚 Book Cover Studio\n\n")
	fmt.Fprintf(&b, "Stage: %s\n", stageLabel(sess.Stage))
	fmt.Fprintf(&b, "Marketplace: %s\n", cover.MarketplaceName(sess.Metadata.MarketplaceID))
	fmt.Fprintf(&b, "Category: %s\n", cover.CategoryName(sess.Metadata.Category))
	fmt.Fprintf(&b, "Language: %s\n", i18n.EnglishName(sess.Language))
	fmt.Fprintf(&b, "Topic: %s\n", orNone(sess.Metadata.Topic))
	fmt.Fprintf(&b, "Author: %s\n", orNone(sess.Metadata.Author))
	if sess.Metadata.TargetMarket != "" {
		fmt.Fprintf(&b, "Audience: %s\n", sess.Metadata.TargetMarket)
	}
	if sess.Metadata.Title != "" {
		fmt.Fprintf(&b, "\nTitle: %s\n", sess.Metadata.Title)
		if sess.Metadata.Subtitle != "" {
			fmt.Fprintf(&b, "Subtitle: %s\n", sess.Metadata.Subtitle)
		}
	}
	if len(sess.Images) > 0 {
		fmt.Fprintf(&b, "Covers: %d (selected: %d)\n", len(sess.Images), sess.SelectedIndex+1)
	}
	if len(sess.Video) > 0 {
		b.WriteString("Video: ready 🎬\n")
	}
	if sess.Loading {
		b.WriteString("\n⏳ A generation step is running…\n")
	}

	return strings.TrimSpace(b.String())
}

func stageLabel(stage cover.Stage) string {
	switch stage {
	case cover.StageResearch:
		return "Research"
	case cover.StageGeneration:
		return "Generation"
	case cover.StageVideo:
		return "Video"
	default:
		return "Details"
	}
}

func cardKeyboard(ownerID int64, sess cover.Session, menu string) tgbotapi.InlineKeyboardMarkup {
	switch menu {
	case "market":
		return optionsKeyboard(ownerID, "market", cover.Marketplaces(), sess.Metadata.MarketplaceID)
	case "category":
		return optionsKeyboard(ownerID, "cat", cover.Categories(), sess.Metadata.Category)
	case "language":
		return languageKeyboard(ownerID, sess.Language)
	default:
		return mainKeyboard(ownerID, sess)
	}
}

func mainKeyboard(ownerID int64, sess cover.Session) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("📖 Topic", cb(ownerID, "ask", "topic")),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Author", cb(ownerID, "ask", "author")),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("Marketplace", cb(ownerID, "menu", "market")),
			tgbotapi.NewInlineKeyboardButtonData("Category", cb(ownerID, "menu", "category")),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("Language", cb(ownerID, "menu", "language")),
			tgbotapi.NewInlineKeyboardButtonData("🎯 Audience", cb(ownerID, "ask", "target")),
		},
	}

	if len(sess.Images) > 0 {
		var selectRow []tgbotapi.InlineKeyboardButton
		for i := range sess.Images {
			label := fmt.Sprintf("%d", i+1)
			if i == sess.SelectedIndex {
				label = "✅ " + label
			}
			selectRow = append(selectRow, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "select", strconv.Itoa(i))))
		}
		rows = append(rows, selectRow)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", cb(ownerID, "edit")),
			tgbotapi.NewInlineKeyboardButtonData("🎬 Video", cb(ownerID, "video")),
			tgbotapi.NewInlineKeyboardButtonData("⬇️ Export", cb(ownerID, "export")),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
		tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
		tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
	})

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionsKeyboard(ownerID int64, action string, options []cover.NamedOption, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, opt := range options {
		label := opt.Name
		if opt.Key == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, action, opt.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", "main")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func languageKeyboard(ownerID int64, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, loc := range i18n.Supported() {
		label := loc.Label
		if loc.Code == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "lang", loc.Code)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", "main")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	return s
}
