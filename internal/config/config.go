package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	TablebaseBaseURL   string
	TablebaseMaxPieces int
	TablebaseTimeout   time.Duration
	TablebaseRetryMax  int
	TablebaseCacheTTL  time.Duration

	RedisURL string

	OpponentDelay time.Duration
	SessionTTL    time.Duration

	PositionsDir string
	MessagesDir  string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		TablebaseMaxPieces: 7,
		TablebaseTimeout:   10 * time.Second,
		TablebaseRetryMax:  3,
		TablebaseCacheTTL:  6 * time.Hour,
		OpponentDelay:      500 * time.Millisecond,
		SessionTTL:         time.Hour,
	}

	cfg.TablebaseBaseURL = strings.TrimSpace(os.Getenv("TABLEBASE_BASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.PositionsDir = strings.TrimSpace(os.Getenv("POSITIONS_DIR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("TABLEBASE_MAX_PIECES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 2 {
			cfg.TablebaseMaxPieces = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TABLEBASE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TablebaseTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("TABLEBASE_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TablebaseRetryMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TABLEBASE_CACHE_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TablebaseCacheTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPPONENT_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.OpponentDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}

	if cfg.TablebaseBaseURL == "" {
		return nil, errors.New("TABLEBASE_BASE_URL is required")
	}

	return cfg, nil
}
