// Package matchqueue pairs waiting users into sessions. The waiting
// set is a Redis sorted set scored by enqueue time; pairing runs inside
// a WATCH transaction on that set, so concurrent pollers can never both
// claim the same opponent. Queue removal, the matched markers for both
// users and the live session document land in one transaction: a
// matched entry can never be matched twice.
package matchqueue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/balda-server/internal/obslog"
	"github.com/kapu/balda-server/internal/presence"
	"github.com/kapu/balda-server/internal/session"
)

const (
	keyWaiting = "mm:wait"
	keyNames   = "mm:names"
)

func keyMatched(userID string) string { return "mm:matched:" + strings.TrimSpace(userID) }

type Queue struct {
	rdb      *redis.Client
	sessions *session.Manager
	tracker  *presence.Tracker
	matchTTL time.Duration
}

func NewQueue(rdb *redis.Client, sessions *session.Manager, tracker *presence.Tracker, matchTTL time.Duration) *Queue {
	if matchTTL <= 0 {
		matchTTL = time.Minute
	}
	return &Queue{rdb: rdb, sessions: sessions, tracker: tracker, matchTTL: matchTTL}
}

// Enqueue adds the user to the waiting set. Re-enqueueing refreshes the
// enqueue time only; a user holds at most one entry.
func (q *Queue) Enqueue(ctx context.Context, userID, name string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("invalid user id")
	}
	// A fresh enqueue starts a fresh search; a marker left over from an
	// earlier, finished game must not answer the next poll.
	_ = q.rdb.Del(ctx, keyMatched(userID)).Err()
	if err := q.rdb.ZAdd(ctx, keyWaiting, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: userID,
	}).Err(); err != nil {
		return err
	}
	if strings.TrimSpace(name) != "" {
		_ = q.rdb.HSet(ctx, keyNames, userID, name).Err()
	}
	if q.tracker != nil {
		_ = q.tracker.TouchWaiting(ctx, userID)
	}
	obslog.L().Debug("queue_enqueue", zap.String("user_id", userID))
	return nil
}

// Cancel removes the user from the waiting set. Racing a concurrent
// match is safe: either the match already consumed the entry (ZRem is a
// no-op) or the entry is gone before pairing sees it.
func (q *Queue) Cancel(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if err := q.rdb.ZRem(ctx, keyWaiting, userID).Err(); err != nil {
		return err
	}
	_ = q.rdb.HDel(ctx, keyNames, userID).Err()
	_ = q.rdb.Del(ctx, keyMatched(userID)).Err()
	if q.tracker != nil {
		_ = q.tracker.ForgetWaiting(ctx, userID)
	}
	return nil
}

// WaitingCount returns the number of users currently waiting.
func (q *Queue) WaitingCount(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, keyWaiting).Result()
}

// Poll refreshes the caller's waiting presence and reports their match.
// Returns the session id once paired, "" while still waiting. Pairing
// races never surface: a lost transaction just means "no match yet".
func (q *Queue) Poll(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("invalid user id")
	}
	if q.tracker != nil {
		_ = q.tracker.TouchWaiting(ctx, userID)
	}

	// Already paired by an earlier poll (ours or the partner's)? The
	// marker only counts while its session is still being played: one
	// left over from a finished game is dropped so the caller goes back
	// to waiting instead of being pointed at an ended session.
	sid, err := q.rdb.Get(ctx, keyMatched(userID)).Result()
	if err != nil && err != redis.Nil {
		return "", err
	}
	if sid != "" {
		live, lerr := q.sessions.Get(ctx, sid)
		if lerr != nil && !errors.Is(lerr, session.ErrNotFound) {
			return "", lerr
		}
		if lerr == nil && live.Status == session.StatusActive {
			if q.tracker != nil {
				_ = q.tracker.TouchInGame(ctx, sid, userID)
			}
			return sid, nil
		}
		if derr := q.rdb.Del(ctx, keyMatched(userID)).Err(); derr != nil {
			return "", derr
		}
	}

	if err := q.tryMatch(ctx); err != nil {
		return "", err
	}

	sid, err = q.rdb.Get(ctx, keyMatched(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if q.tracker != nil {
		_ = q.tracker.TouchInGame(ctx, sid, userID)
	}
	return sid, nil
}

// tryMatch pairs the two earliest-enqueued distinct users, if present.
func (q *Queue) tryMatch(ctx context.Context) error {
	var created *session.Session
	err := q.rdb.Watch(ctx, func(tx *redis.Tx) error {
		entries, err := tx.ZRangeWithScores(ctx, keyWaiting, 0, 1).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if len(entries) < 2 {
			return nil
		}
		firstID, _ := entries[0].Member.(string)
		secondID, _ := entries[1].Member.(string)

		first := session.Participant{ID: firstID, Name: q.displayName(ctx, tx, firstID)}
		second := session.Participant{ID: secondID, Name: q.displayName(ctx, tx, secondID)}
		s, err := q.sessions.NewSession(first, second)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.ZRem(ctx, keyWaiting, firstID, secondID)
		pipe.HDel(ctx, keyNames, firstID, secondID)
		pipe.Set(ctx, keyMatched(firstID), s.ID, q.matchTTL)
		pipe.Set(ctx, keyMatched(secondID), s.ID, q.matchTTL)
		if err := q.sessions.StageSave(ctx, pipe, s); err != nil {
			return err
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		created = s
		return nil
	}, keyWaiting)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// A concurrent poller won the pairing. Not an error; the
			// next poll will find the marker or re-pair.
			return nil
		}
		return err
	}
	if created != nil {
		q.sessions.CommitCreated(ctx, created)
		obslog.L().Info("match_paired",
			zap.String("game_id", created.ID),
			zap.String("first_id", created.Players[0].ID),
			zap.String("second_id", created.Players[1].ID),
		)
	}
	return nil
}

// PlayWithBot bypasses the queue and starts a session against the bot.
func (q *Queue) PlayWithBot(ctx context.Context, userID, name string) (*session.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("invalid user id")
	}
	if q.sessions.BotPlayer().ID == "" {
		return nil, errors.New("bot opponent not configured")
	}
	// A user starting a bot game is no longer waiting for a human.
	_ = q.rdb.ZRem(ctx, keyWaiting, userID).Err()

	human := session.Participant{ID: userID, Name: name}
	s, err := q.sessions.Create(ctx, human, q.sessions.BotPlayer())
	if err != nil {
		return nil, err
	}
	if q.tracker != nil {
		_ = q.tracker.TouchInGame(ctx, s.ID, userID)
	}
	return s, nil
}

func (q *Queue) displayName(ctx context.Context, tx *redis.Tx, userID string) string {
	name, err := tx.HGet(ctx, keyNames, userID).Result()
	if err != nil {
		return userID
	}
	return name
}
