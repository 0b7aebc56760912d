package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/balda-server/internal/board"
	"github.com/kapu/balda-server/internal/bot"
	"github.com/kapu/balda-server/internal/obslog"
	"github.com/kapu/balda-server/internal/presence"
	"github.com/kapu/balda-server/internal/rating"
)

// Manager owns session lifecycles. Live state lives in Redis under a
// TTL; the repository keeps the durable copy. All mutation goes through
// WATCH transactions on the session key, so two concurrent submits for
// one session can never both apply.
type Manager struct {
	rdb        *redis.Client
	repo       Repository
	dict       board.Dictionary
	tracker    *presence.Tracker
	sessionTTL time.Duration

	botPolicy bot.Policy
	botPlayer Participant

	fieldSize int
	firstWord string
}

type ManagerConfig struct {
	FieldSize  int
	FirstWord  string
	SessionTTL time.Duration
}

func NewManager(rdb *redis.Client, repo Repository, dict board.Dictionary, tracker *presence.Tracker, cfg ManagerConfig) (*Manager, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	// Fail on a misconfigured seed before any session exists. Every
	// session starts from this position; one without a legal move would
	// sit ACTIVE until somebody forfeits.
	b, err := board.New(cfg.FieldSize, cfg.FirstWord)
	if err != nil {
		return nil, err
	}
	if !b.HasLegalMove(dict, map[string]bool{}, 0) {
		return nil, errors.New("no opening move: seed word and dictionary do not combine")
	}
	return &Manager{
		rdb:        rdb,
		repo:       repo,
		dict:       dict,
		tracker:    tracker,
		sessionTTL: cfg.SessionTTL,
		fieldSize:  cfg.FieldSize,
		firstWord:  strings.ToLower(cfg.FirstWord),
	}, nil
}

// AttachBot wires the computer opponent used by PlayWithBot sessions.
func (m *Manager) AttachBot(policy bot.Policy, player Participant) {
	if m != nil {
		m.botPolicy = policy
		m.botPlayer = player
	}
}

// BotPlayer returns the configured bot participant.
func (m *Manager) BotPlayer() Participant { return m.botPlayer }

func gameKey(id string) string { return "game:" + strings.TrimSpace(id) }

// NewSession builds a fresh ACTIVE session without persisting it. The
// first participant moves first.
func (m *Manager) NewSession(first, second Participant) (*Session, error) {
	if _, err := board.New(m.fieldSize, m.firstWord); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Players:   [2]Participant{first, second},
		FieldSize: m.fieldSize,
		FirstWord: m.firstWord,
		Status:    StatusActive,
		Moves:     []board.Move{},
		Turn:      0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StageSave queues the live-session write onto an existing pipeline so
// callers can make session creation atomic with their own keys.
func (m *Manager) StageSave(ctx context.Context, pipe redis.Pipeliner, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe.Set(ctx, gameKey(s.ID), raw, m.sessionTTL)
	return nil
}

// CommitCreated persists the durable copy after the live write landed.
func (m *Manager) CommitCreated(ctx context.Context, s *Session) {
	if err := m.repo.SaveSession(ctx, s); err != nil {
		obslog.L().Error("session_persist_error", zap.String("game_id", s.ID), zap.Error(err))
	}
	obslog.L().Info("session_create",
		zap.String("game_id", s.ID),
		zap.String("first_id", s.Players[0].ID),
		zap.String("second_id", s.Players[1].ID),
		zap.Bool("vs_bot", s.Players[1].Bot),
	)
}

// Create builds and persists a session in one step (bot games).
func (m *Manager) Create(ctx context.Context, first, second Participant) (*Session, error) {
	s, err := m.NewSession(first, second)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := m.rdb.Set(ctx, gameKey(s.ID), raw, m.sessionTTL).Err(); err != nil {
		return nil, err
	}
	m.CommitCreated(ctx, s)
	return s, nil
}

// Get returns the session by id, falling back to the durable store
// when the live key expired. Returns ErrNotFound when unknown.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == nil {
		var s Session
		if jerr := json.Unmarshal(raw, &s); jerr != nil {
			return nil, jerr
		}
		return &s, nil
	}
	if err != redis.Nil {
		return nil, err
	}
	s, err := m.repo.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	// Re-cache so the next mutation has a key to WATCH.
	if cached, jerr := json.Marshal(s); jerr == nil {
		_ = m.rdb.Set(ctx, gameKey(id), cached, m.sessionTTL).Err()
	}
	return s, nil
}

// SubmitMove applies one ply for userID. On success the move is
// appended, the turn flips, and terminal detection runs. In a bot game
// the bot's reply is played before returning.
func (m *Manager) SubmitMove(ctx context.Context, sessionID, userID string, mv board.Move) (*Session, error) {
	s, err := m.applyMove(ctx, sessionID, userID, mv)
	if err != nil {
		return nil, err
	}
	if m.tracker != nil && !s.Players[s.playerIndex(userID)].Bot {
		_ = m.tracker.TouchInGame(ctx, s.ID, userID)
	}
	if s.Status == StatusActive && s.Players[s.Turn].Bot {
		return m.playBotTurn(ctx, s)
	}
	return s, nil
}

func (m *Manager) applyMove(ctx context.Context, sessionID, userID string, mv board.Move) (*Session, error) {
	initial, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	oldLen := len(initial.Moves)
	key := gameKey(sessionID)

	var out *Session
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Status != StatusActive {
			return ErrNotActive
		}
		if len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}
		idx := cur.playerIndex(userID)
		if idx < 0 {
			return ErrNotParticipant
		}
		if idx != cur.Turn {
			return ErrOutOfTurn
		}

		b, err := cur.Board()
		if err != nil {
			return err
		}
		used := cur.UsedWords()
		next, err := b.Apply(mv, m.dict, used)
		if err != nil {
			return err
		}

		cur.Moves = append(cur.Moves, mv)
		cur.Scores[idx] += len([]rune(mv.Word()))
		cur.Turn = 1 - cur.Turn
		cur.UpdatedAt = time.Now()

		used[mv.Word()] = true
		if !next.HasLegalMove(m.dict, used, 0) {
			cur.Status = StatusEnded
			if next.Full() {
				cur.EndReason = EndBoardFull
			} else {
				cur.EndReason = EndNoMoves
				cur.Winner = cur.Players[idx].ID
			}
		}

		return saveTx(ctx, tx, key, cur, m.sessionTTL, &out)
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConflict
		}
		return nil, err
	}

	obslog.L().Info("session_move",
		zap.String("game_id", out.ID),
		zap.String("user_id", userID),
		zap.String("word", mv.Word()),
		zap.Int("log_len", len(out.Moves)),
		zap.String("status", string(out.Status)),
	)
	if out.Status == StatusEnded {
		m.reportOutcome(ctx, out)
	} else if err := m.repo.SaveSession(ctx, out); err != nil {
		obslog.L().Error("session_persist_error", zap.String("game_id", out.ID), zap.Error(err))
	}
	return out, nil
}

// playBotTurn asks the policy for a reply and applies it. A policy with
// nothing to play forfeits the bot.
func (m *Manager) playBotTurn(ctx context.Context, s *Session) (*Session, error) {
	if m.botPolicy == nil {
		return s, nil
	}
	b, err := s.Board()
	if err != nil {
		return nil, err
	}
	mv, ok := m.botPolicy.ProposeMove(ctx, b, s.UsedWords())
	if !ok {
		return m.Forfeit(ctx, s.ID, s.Players[s.Turn].ID)
	}
	out, err := m.applyMove(ctx, s.ID, s.Players[s.Turn].ID, mv)
	if err != nil {
		// The bot proposed against the same position it was asked about;
		// a rejection here means a concurrent update won. Surface the
		// session as-is.
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotActive) {
			return m.Get(ctx, s.ID)
		}
		return nil, err
	}
	return out, nil
}

// Forfeit ends the session in favor of the opponent. Calling it on an
// already-ended session is a no-op, not an error; the terminal outcome
// is reported exactly once, by the call that wins the transition.
func (m *Manager) Forfeit(ctx context.Context, sessionID, userID string) (*Session, error) {
	initial, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if initial.playerIndex(userID) < 0 {
		return nil, ErrNotParticipant
	}
	if initial.Status != StatusActive {
		return initial, nil
	}
	key := gameKey(sessionID)

	var out *Session
	transitioned := false
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Status != StatusActive {
			out = cur
			return nil
		}
		cur.Status = StatusEnded
		cur.Winner = cur.Opponent(userID).ID
		cur.EndReason = EndForfeit
		cur.UpdatedAt = time.Now()
		transitioned = true
		return saveTx(ctx, tx, key, cur, m.sessionTTL, &out)
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// Lost the race against another terminal transition; the
			// session is ended either way.
			return m.Get(ctx, sessionID)
		}
		return nil, err
	}
	if transitioned {
		obslog.L().Info("session_forfeit",
			zap.String("game_id", out.ID),
			zap.String("by", userID),
			zap.String("winner", out.Winner),
		)
		m.reportOutcome(ctx, out)
	}
	return out, nil
}

// reportOutcome persists the ended session and applies the terminal
// result to both profiles.
func (m *Manager) reportOutcome(ctx context.Context, s *Session) {
	if err := m.repo.SaveSession(ctx, s); err != nil {
		obslog.L().Error("session_persist_error", zap.String("game_id", s.ID), zap.Error(err))
	}

	p0 := m.loadOrDefault(ctx, s.Players[0])
	p1 := m.loadOrDefault(ctx, s.Players[1])

	var score0 float64
	switch s.Winner {
	case "":
		score0 = 0.5
		p0.Draws++
		p1.Draws++
	case s.Players[0].ID:
		score0 = 1
		p0.Wins++
		p1.Losses++
	default:
		score0 = 0
		p0.Losses++
		p1.Wins++
	}
	p0.Rating, p1.Rating = rating.Apply(p0.Rating, p1.Rating, score0)
	now := time.Now()
	p0.LastSeen = now
	p1.LastSeen = now

	for _, p := range []*Profile{p0, p1} {
		if err := m.repo.UpsertProfile(ctx, p); err != nil {
			obslog.L().Error("profile_persist_error", zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
	obslog.L().Info("session_result",
		zap.String("game_id", s.ID),
		zap.String("winner", s.Winner),
		zap.String("reason", s.EndReason),
	)
}

func (m *Manager) loadOrDefault(ctx context.Context, pl Participant) *Profile {
	p, err := m.repo.GetProfile(ctx, pl.ID)
	if err != nil {
		obslog.L().Error("profile_load_error", zap.String("user_id", pl.ID), zap.Error(err))
	}
	if p == nil {
		p = defaultProfile(pl.ID, pl.Name)
	}
	return p
}

func loadTx(ctx context.Context, tx *redis.Tx, key string) (*Session, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if jerr := json.Unmarshal(raw, &s); jerr != nil {
		return nil, jerr
	}
	return &s, nil
}

func saveTx(ctx context.Context, tx *redis.Tx, key string, s *Session, ttl time.Duration, out **Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := tx.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	*out = s
	return nil
}
