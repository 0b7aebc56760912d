package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	FieldSize int
	FirstWord string

	DictPath    string
	MessagesDir string

	// Presence TTLs in seconds per scope. A record is "recent" exactly
	// while its key still exists.
	PresenceOnlineTTLSec int
	PresenceWaitTTLSec   int
	PresenceGameTTLSec   int

	// How long a matched-session marker stays readable for the partner's poll.
	MatchTTLSec int

	// Live session document TTL in Redis (durable copy lives in the repository).
	SessionTTLSec int

	BotName       string
	BotMaxWordLen int
}

func Load() (*AppConfig, error) {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	cfg := &AppConfig{
		ListenAddr:           ":8080",
		FieldSize:            5,
		FirstWord:            "balda",
		PresenceOnlineTTLSec: 300,
		PresenceWaitTTLSec:   10,
		PresenceGameTTLSec:   60,
		MatchTTLSec:          60,
		SessionTTLSec:        86400,
		BotName:              "EASYBOT",
		BotMaxWordLen:        8,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("FIRST_WORD")); v != "" {
		cfg.FirstWord = strings.ToLower(v)
	}
	cfg.DictPath = strings.TrimSpace(os.Getenv("DICT_PATH"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	if v := strings.TrimSpace(os.Getenv("BOT_NAME")); v != "" {
		cfg.BotName = v
	}

	var err error
	if cfg.FieldSize, err = intEnv("FIELD_SIZE", cfg.FieldSize); err != nil {
		return nil, err
	}
	if cfg.PresenceOnlineTTLSec, err = intEnv("PRESENCE_ONLINE_TTL_SEC", cfg.PresenceOnlineTTLSec); err != nil {
		return nil, err
	}
	if cfg.PresenceWaitTTLSec, err = intEnv("PRESENCE_WAIT_TTL_SEC", cfg.PresenceWaitTTLSec); err != nil {
		return nil, err
	}
	if cfg.PresenceGameTTLSec, err = intEnv("PRESENCE_GAME_TTL_SEC", cfg.PresenceGameTTLSec); err != nil {
		return nil, err
	}
	if cfg.MatchTTLSec, err = intEnv("MATCH_TTL_SEC", cfg.MatchTTLSec); err != nil {
		return nil, err
	}
	if cfg.SessionTTLSec, err = intEnv("SESSION_TTL_SEC", cfg.SessionTTLSec); err != nil {
		return nil, err
	}
	if cfg.BotMaxWordLen, err = intEnv("BOT_MAX_WORD_LEN", cfg.BotMaxWordLen); err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.FieldSize < len([]rune(cfg.FirstWord)) {
		return nil, errors.New("FIELD_SIZE must be at least the length of FIRST_WORD")
	}
	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
