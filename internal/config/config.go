package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

type AppConfig struct {
	HTTPAddr string

	HumanColor rules.Color
	ReplyDelay time.Duration
	RandomSeed int64
	HasSeed    bool

	RedisURL     string
	DatabaseURL  string
	ArchiveLimit int

	WebhookURL  string
	MessagesDir string

	BoardSquarePx int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:      ":8080",
		HumanColor:    rules.White,
		ReplyDelay:    250 * time.Millisecond,
		ArchiveLimit:  20,
		BoardSquarePx: 64,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	if v := strings.TrimSpace(os.Getenv("HUMAN_COLOR")); v != "" {
		c, ok := rules.ParseColor(v)
		if !ok {
			return nil, errors.New("HUMAN_COLOR must be white or black")
		}
		cfg.HumanColor = c
	}
	if v := strings.TrimSpace(os.Getenv("REPLY_DELAY_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.New("REPLY_DELAY_MS must be a non-negative integer")
		}
		cfg.ReplyDelay = time.Duration(n) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv("RANDOM_SEED")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("RANDOM_SEED must be an integer")
		}
		cfg.RandomSeed = n
		cfg.HasSeed = true
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveLimit = n
		}
	}

	cfg.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("BOARD_SQUARE_PX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 16 && n <= 256 {
			cfg.BoardSquarePx = n
		}
	}

	return cfg, nil
}
