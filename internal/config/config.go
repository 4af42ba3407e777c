package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	WebAddr       string
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	GeminiBaseURL    string
	GeminiAPIVersion string

	DefaultLanguage string

	MaxConcurrent      int
	RequestTimeout     time.Duration
	VideoTimeout       time.Duration
	HTTPTimeout        time.Duration
	VideoPollInterval  time.Duration
	MediaGroupDebounce time.Duration
}

// Load reads everything from the environment. Required values are
// enforced by the entry points, not here: the web server runs without a
// bot token and the bot runs without a web address.
func Load() Config {
	cfg := Config{
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion:   getEnv("GEMINI_API_VERSION", "v1beta"),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		VideoTimeout:       time.Duration(getEnvInt("VIDEO_TIMEOUT_SECONDS", 900)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 300)) * time.Second,
		VideoPollInterval:  time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)) * time.Second,
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 240 * time.Second
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = 900 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 300 * time.Second
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 10 * time.Second
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
