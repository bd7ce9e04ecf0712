package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"signpractice/internal/practice"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port               string
	IsProduction       bool
	RecognitionURL     string
	RequestTimeout     time.Duration
	CaptureQuality     float64
	SessionTimeout     time.Duration
	CookieMaxAge       time.Duration
	StaticCacheAge     time.Duration
	RateLimitRPS       int
	RateLimitBurst     int
	SnapshotBackend    string
	SnapshotDir        string
	RedisURL           string
	CORSAllowedOrigins []string
}

// loadConfig reads .env (if present) and the process environment.
func loadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logWarn("Failed to load .env: %v", err)
	}

	quality := getEnvInt("CAPTURE_QUALITY_PERCENT", int(practice.DefaultCaptureQuality*100))
	if quality < 1 || quality > 100 {
		logWarn("CAPTURE_QUALITY_PERCENT %d out of range, using default", quality)
		quality = int(practice.DefaultCaptureQuality * 100)
	}

	return Config{
		Port:               getEnvString("PORT", "8080"),
		IsProduction:       os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production",
		RecognitionURL:     getEnvString("RECOGNITION_API_URL", "http://localhost:5000/"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", practice.DefaultTimeout),
		CaptureQuality:     float64(quality) / 100,
		SessionTimeout:     getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		CookieMaxAge:       getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		StaticCacheAge:     getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:       getEnvInt("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 5),
		SnapshotBackend:    getEnvString("SNAPSHOT_BACKEND", "file"),
		SnapshotDir:        getEnvString("SNAPSHOT_DIR", "data/sessions"),
		RedisURL:           getEnvString("REDIS_URL", ""),
		CORSAllowedOrigins: splitList(getEnvString("CORS_ALLOWED_ORIGINS", "")),
	}
}

// splitList parses a comma-separated environment value.
func splitList(val string) []string {
	return lo.Compact(lo.Map(strings.Split(val, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
