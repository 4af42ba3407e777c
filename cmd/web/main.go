package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"bookcover-studio/internal/config"
	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/gemini"
	"bookcover-studio/internal/httpclient"
	"bookcover-studio/internal/keyauth"
	"bookcover-studio/internal/studio"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	keys := keyauth.NewKeyStore(cfg.GeminiAPIKey)
	guard := keyauth.NewGuard(&keyauth.StoreSelector{
		Store: keys,
		// The browser UI owns key selection; a rejected key surfaces as
		// a key_required error and the client calls PUT /api/key.
		Prompt: func(ctx context.Context) error {
			logger.Warn("api key rejected, waiting for new key")
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

	s := &server{
		studio:          std,
		keys:            keys,
		logger:          logger,
		defaultLanguage: cfg.DefaultLanguage,
		requestTimeout:  cfg.RequestTimeout,
		videoTimeout:    cfg.VideoTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withLogging(logger))

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

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(staticSub)))

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.VideoTimeout + time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
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
