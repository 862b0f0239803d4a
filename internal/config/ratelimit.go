package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig defines settings for the auth endpoint rate limiter.
// Requests are counted per client IP within fixed windows of Window
// duration; once Limit is reached further requests are rejected until
// the window rolls over. When Enabled is false or no Redis client is
// available, limiting is disabled.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig. Defaults are used when variables are not set.
func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: getenv("RATELIMIT_ENABLED", "true") == "true",
		Limit:   atoi(getenv("RATELIMIT_LIMIT", "10")),
		Window:  parseDur(getenv("RATELIMIT_WINDOW", "1m")),
		Prefix:  getenv("RATELIMIT_PREFIX", "rl"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
