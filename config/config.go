package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port      string
	LogLevel  string
	CORSAllow []string

	// Optional redis bus for multi-instance room broadcasts. Empty
	// disables it.
	RedisAddr string
	RedisDB   int

	// Path to the SQLite transcript database. Empty keeps transcripts in
	// memory only.
	TranscriptDB string

	// When true, speaking/transcript messages must name the room the
	// sender is actually joined to.
	StrictRoomCheck bool

	// REST API rate limit, requests per minute per client IP. Zero
	// disables the limiter.
	RateLimitRPM int
}

func Load() Config {
	return Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllow:       splitCSV(getEnv("CORS_ALLOW", "*")),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		TranscriptDB:    getEnv("TRANSCRIPT_DB", ""),
		StrictRoomCheck: getEnvBool("STRICT_ROOM_CHECK", false),
		RateLimitRPM:    getEnvInt("RATE_LIMIT_RPM", 60),
	}
}

// getEnv returns the env var or a default.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses a non-negative int env var with a fallback. Zero is a
// valid value (RATE_LIMIT_RPM=0 disables the limiter).
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// splitCSV trims and filters a comma-separated list.
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
