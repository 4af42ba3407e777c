package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookcover-studio/internal/config"
	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/gemini"
	"bookcover-studio/internal/handlers"
	"bookcover-studio/internal/httpclient"
	"bookcover-studio/internal/keyauth"
	"bookcover-studio/internal/mediagroup"
	"bookcover-studio/internal/studio"
	"bookcover-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		panic("TELEGRAM_BOT_TOKEN is required")
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	keys := keyauth.NewKeyStore(cfg.GeminiAPIKey)
	guard := keyauth.NewGuard(&keyauth.StoreSelector{
		Store: keys,
		// There is no inline selection UI over the Bot API; users are
		// asked to pick a key with /setkey and the guard waits for it.
		Prompt: func(ctx context.Context) error {
			logger.Warn("api key rejected, waiting for /setkey")
			return nil
		},
	}, logger)

	gem := gemini.New(gemini.Options{
		APIKey:            keys.Key,
		BaseURL:           cfg.GeminiBaseURL,
		APIVersion:        cfg.GeminiAPIVersion,
		HTTPClient:        httpClient,
		Logger:            logger,
		Guard:             guard,
		VideoPollInterval: cfg.VideoPollInterval,
	})

	std := studio.New(studio.Options{
		Generator: gem,
		Sessions:  cover.NewStore(),
		Logger:    logger,
	})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Studio:   std,
		Keys:     keys,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbumFlush,
	})
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(30 * time.Second)
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				timeout := cfg.RequestTimeout
				if wantsVideo(update) {
					timeout = cfg.VideoTimeout
				}
				reqCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

// wantsVideo spots video callbacks so the long-running render gets the
// larger timeout.
func wantsVideo(update telegram.Update) bool {
	if update.CallbackQuery == nil {
		return false
	}
	return handlers.IsVideoCallback(update.CallbackQuery.Data)
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
