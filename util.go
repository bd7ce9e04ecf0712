package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logWarn("Error checking directory existence: %v", err)
		}
		return false
	}
	return info.IsDir()
}

// formatUptime returns a human-readable string for a duration.
func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours), minutes, plural(minutes), seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes), seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// getEnv reads key with parse, falling back when unset or unparsable.
func getEnv[T any](key string, fallback T, parse func(string) (T, error)) T {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	v, err := parse(val)
	if err != nil {
		logWarn("Invalid value for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return v
}

func getEnvString(key, fallback string) string {
	return getEnv(key, fallback, func(s string) (string, error) { return s, nil })
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	return getEnv(key, fallback, time.ParseDuration)
}

func getEnvInt(key string, fallback int) int {
	return getEnv(key, fallback, strconv.Atoi)
}

func logInfo(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func logWarn(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}

func logFatal(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}
