package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/balda-server/internal/gamelog"
	"github.com/kapu/balda-server/internal/rating"
)

// Profile is the durable per-user record mutated on terminal outcomes
// and on authenticated activity.
type Profile struct {
	UserID   string
	Name     string
	Wins     int
	Draws    int
	Losses   int
	Rating   int
	LastSeen time.Time
}

// Repository is the durable store behind the engine. Sessions are
// upserted whole; the game log travels as its serialized bytes.
type Repository interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context, id string) (*Session, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	Close() error
}

type pgRepository struct {
	db *sql.DB
}

// NewRepository opens a Postgres-backed repository.
func NewRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &pgRepository{db: db}, nil
}

func (r *pgRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *pgRepository) SaveSession(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("nil session payload")
	}
	logRaw, err := gamelog.Serialize(gamelog.FromMoves(s.Moves))
	if err != nil {
		return err
	}

	const q = `INSERT INTO balda_games (
	    id, first_id, first_name, first_bot,
	    second_id, second_name, second_bot,
	    field_size, first_word, status, game_log, turn_index,
	    winner, end_reason, created_at, updated_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12,$13,$14,$15,$16
	  ) ON CONFLICT (id) DO UPDATE SET
	    status=EXCLUDED.status,
	    game_log=EXCLUDED.game_log,
	    turn_index=EXCLUDED.turn_index,
	    winner=EXCLUDED.winner,
	    end_reason=EXCLUDED.end_reason,
	    updated_at=EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, q,
		s.ID,
		s.Players[0].ID, s.Players[0].Name, s.Players[0].Bot,
		s.Players[1].ID, s.Players[1].Name, s.Players[1].Bot,
		s.FieldSize, s.FirstWord, string(s.Status), string(logRaw), s.Turn,
		s.Winner, s.EndReason, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert balda game: %w", err)
	}
	return nil
}

func (r *pgRepository) LoadSession(ctx context.Context, id string) (*Session, error) {
	const q = `SELECT
	    id, first_id, first_name, first_bot,
	    second_id, second_name, second_bot,
	    field_size, first_word, status, game_log, turn_index,
	    winner, end_reason, created_at, updated_at
	  FROM balda_games WHERE id = $1`

	var (
		s      Session
		status string
		logRaw []byte
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID,
		&s.Players[0].ID, &s.Players[0].Name, &s.Players[0].Bot,
		&s.Players[1].ID, &s.Players[1].Name, &s.Players[1].Bot,
		&s.FieldSize, &s.FirstWord, &status, &logRaw, &s.Turn,
		&s.Winner, &s.EndReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select balda game: %w", err)
	}
	s.Status = Status(status)
	lg, err := gamelog.Deserialize(logRaw)
	if err != nil {
		return nil, err
	}
	s.Moves = lg.Moves()
	s.Scores = scoresFromMoves(&s)
	return &s, nil
}

func (r *pgRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	const q = `SELECT user_id, name, wins, draws, losses, rating, last_seen
	  FROM balda_profiles WHERE user_id = $1`

	var p Profile
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &p.Name, &p.Wins, &p.Draws, &p.Losses, &p.Rating, &p.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select balda profile: %w", err)
	}
	return &p, nil
}

func (r *pgRepository) UpsertProfile(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile payload")
	}
	const q = `INSERT INTO balda_profiles (
	    user_id, name, wins, draws, losses, rating, last_seen
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7)
	  ON CONFLICT (user_id) DO UPDATE SET
	    name=EXCLUDED.name,
	    wins=EXCLUDED.wins,
	    draws=EXCLUDED.draws,
	    losses=EXCLUDED.losses,
	    rating=EXCLUDED.rating,
	    last_seen=EXCLUDED.last_seen`

	_, err := r.db.ExecContext(ctx, q,
		p.UserID, p.Name, p.Wins, p.Draws, p.Losses, p.Rating, p.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert balda profile: %w", err)
	}
	return nil
}

// defaultProfile returns the starting profile for a never-seen user.
func defaultProfile(userID, name string) *Profile {
	return &Profile{UserID: userID, Name: name, Rating: rating.Default}
}

func scoresFromMoves(s *Session) [2]int {
	var scores [2]int
	for i, mv := range s.Moves {
		scores[i%2] += len([]rune(mv.Word()))
	}
	return scores
}
