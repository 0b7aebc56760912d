// Package presence tracks short-lived liveness records in Redis. A
// record is "recent" exactly while its key still exists; expiry,
// deletion and never-set are indistinguishable. The key TTL is the only
// recency rule.
package presence

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	OnlineTTL time.Duration // global scope: any authenticated activity
	WaitTTL   time.Duration // waiting scope: actively seeking a match
	GameTTL   time.Duration // in-game scope: heartbeat inside one session
}

type Tracker struct {
	rdb *redis.Client
	cfg Config
}

func NewTracker(rdb *redis.Client, cfg Config) *Tracker {
	if cfg.OnlineTTL <= 0 {
		cfg.OnlineTTL = 5 * time.Minute
	}
	if cfg.WaitTTL <= 0 {
		cfg.WaitTTL = 10 * time.Second
	}
	if cfg.GameTTL <= 0 {
		cfg.GameTTL = time.Minute
	}
	return &Tracker{rdb: rdb, cfg: cfg}
}

func (t *Tracker) keySeen(userID string) string { return "seen:" + strings.TrimSpace(userID) }
func (t *Tracker) keyWait(userID string) string { return "wait:" + strings.TrimSpace(userID) }
func (t *Tracker) keyGame(gameID, userID string) string {
	return "seen:" + strings.TrimSpace(gameID) + ":" + strings.TrimSpace(userID)
}

// TouchOnline records global activity for the user.
func (t *Tracker) TouchOnline(ctx context.Context, userID string) error {
	return t.touch(ctx, t.keySeen(userID), t.cfg.OnlineTTL)
}

// TouchWaiting records that the user is actively seeking a match.
func (t *Tracker) TouchWaiting(ctx context.Context, userID string) error {
	return t.touch(ctx, t.keyWait(userID), t.cfg.WaitTTL)
}

// TouchInGame records a heartbeat inside one session.
func (t *Tracker) TouchInGame(ctx context.Context, gameID, userID string) error {
	return t.touch(ctx, t.keyGame(gameID, userID), t.cfg.GameTTL)
}

func (t *Tracker) touch(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return t.rdb.Set(ctx, key, now, ttl).Err()
}

// LastSeen returns the recorded global timestamp, absent when expired
// or never set.
func (t *Tracker) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	return t.recent(ctx, t.keySeen(userID))
}

// LastWaited returns the recorded waiting timestamp.
func (t *Tracker) LastWaited(ctx context.Context, userID string) (time.Time, bool, error) {
	return t.recent(ctx, t.keyWait(userID))
}

// LastSeenInGame returns the recorded in-game timestamp.
func (t *Tracker) LastSeenInGame(ctx context.Context, gameID, userID string) (time.Time, bool, error) {
	return t.recent(ctx, t.keyGame(gameID, userID))
}

func (t *Tracker) recent(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := t.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ts, perr := time.Parse(time.RFC3339Nano, raw)
	if perr != nil {
		// Treat an unreadable record the same as an absent one.
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// IsOnline reports whether the user was seen recently anywhere.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	_, ok, err := t.LastSeen(ctx, userID)
	return ok, err
}

// IsOnlineInGame reports whether the user is reachable inside a game:
// either a recent heartbeat in that game, or still in the act of
// waiting/polling. The waiting record covers the gap between pairing
// and the client's first in-game heartbeat.
func (t *Tracker) IsOnlineInGame(ctx context.Context, gameID, userID string) (bool, error) {
	_, inGame, err := t.LastSeenInGame(ctx, gameID, userID)
	if err != nil {
		return false, err
	}
	if inGame {
		return true, nil
	}
	_, waiting, err := t.LastWaited(ctx, userID)
	if err != nil {
		return false, err
	}
	return waiting, nil
}

// ForgetWaiting drops the waiting record, e.g. on queue cancellation.
func (t *Tracker) ForgetWaiting(ctx context.Context, userID string) error {
	return t.rdb.Del(ctx, t.keyWait(userID)).Err()
}
