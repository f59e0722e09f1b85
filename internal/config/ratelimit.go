package config

import "time"

// RateLimitConfig configures the Redis token bucket. Booking writes get
// their own, tighter bucket so a burst of create attempts cannot starve
// the read endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // "ip", "user", "ip_user" or "ip_user_route"
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	return loadRateLimit("RATE_LIMIT", 60, "rl")
}

// LoadBookingRateLimitConfig reads the BOOKING_RATE_LIMIT_* variables that
// guard booking and order writes.
func LoadBookingRateLimitConfig() RateLimitConfig {
	return loadRateLimit("BOOKING_RATE_LIMIT", 10, "rlw")
}

func loadRateLimit(prefix string, capacity int, keyPrefix string) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(prefix+"_ENABLED", true),
		Capacity:       envInt(prefix+"_CAPACITY", capacity),
		RefillTokens:   envInt(prefix+"_REFILL_TOKENS", 1),
		RefillInterval: envDur(prefix+"_REFILL_INTERVAL", time.Second),
		TTL:            envDur(prefix+"_TTL", 10*time.Minute),
		KeyStrategy:    envStr(prefix+"_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr(prefix+"_PREFIX", keyPrefix),
		Debug:          envBool(prefix+"_DEBUG", false),
	}
	if b := envInt(prefix+"_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur(prefix+"_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
