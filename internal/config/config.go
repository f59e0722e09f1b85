// Package config loads application configuration from environment variables.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS, may be empty
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS, default 7
	BcryptCost     int    // BCRYPT_COST

	Booking BookingConfig
	Queue   QueueConfig
	Log     LogConfig
}

// BookingConfig carries the scheduling constants handed to the booking
// orchestrator.
type BookingConfig struct {
	DefaultTableDuration time.Duration // BOOKING_DEFAULT_TABLE_DURATION, default 120m
	MaxTableDuration     time.Duration // BOOKING_MAX_TABLE_DURATION, default 8h
	NotifyTimeout        time.Duration // BOOKING_NOTIFY_TIMEOUT, default 10s
	UpcomingHorizon      time.Duration // BOOKING_UPCOMING_HORIZON, default 24h
}

// QueueConfig configures the status-change notifications. An empty URL
// disables publishing.
type QueueConfig struct {
	URL          string // RABBITMQ_URL (or AMQP_URL)
	Name         string // NOTIFY_QUEUE, default booking.status_changed
	AuditLogPath string // AUDIT_LOG_PATH, default logs/booking.log
	Consume      bool   // NOTIFY_CONSUMER_ENABLED, default true
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string // LOG_LEVEL, default info
	Format string // LOG_FORMAT: json or text, default json
	File   string // LOG_FILE, optional rotating copy of the output
}

// Load reads the configuration. Every missing or malformed required
// variable is reported in one error.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is fine

	r := &reader{}
	cfg := Config{
		Env:            r.must("APP_ENV"),
		Port:           r.must("APP_PORT"),
		DBUser:         r.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         r.must("DB_HOST"),
		DBPort:         r.must("DB_PORT"),
		DBName:         r.must("DB_NAME"),
		JWTSecret:      r.must("JWT_SECRET"),
		AccessTTLMin:   r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     r.mustInt("BCRYPT_COST"),
		Booking: BookingConfig{
			DefaultTableDuration: envDur("BOOKING_DEFAULT_TABLE_DURATION", 120*time.Minute),
			MaxTableDuration:     envDur("BOOKING_MAX_TABLE_DURATION", 8*time.Hour),
			NotifyTimeout:        envDur("BOOKING_NOTIFY_TIMEOUT", 10*time.Second),
			UpcomingHorizon:      envDur("BOOKING_UPCOMING_HORIZON", 24*time.Hour),
		},
		Queue: QueueConfig{
			URL:          envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
			Name:         envStr("NOTIFY_QUEUE", "booking.status_changed"),
			AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/booking.log"),
			Consume:      envBool("NOTIFY_CONSUMER_ENABLED", true),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
			File:   os.Getenv("LOG_FILE"),
		},
	}
	if cfg.Booking.DefaultTableDuration > cfg.Booking.MaxTableDuration {
		r.problems = append(r.problems, "BOOKING_DEFAULT_TABLE_DURATION exceeds BOOKING_MAX_TABLE_DURATION")
	}
	if len(r.problems) > 0 {
		sort.Strings(r.problems)
		return Config{}, fmt.Errorf("config: %s", strings.Join(r.problems, "; "))
	}
	return cfg, nil
}

// reader collects problems with required variables instead of exiting on
// the first one.
type reader struct {
	problems []string
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.problems = append(r.problems, "missing required env var "+key)
	}
	return v
}

func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid int for %s: %q", key, s))
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
