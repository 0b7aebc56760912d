package session

import (
	"time"

	"github.com/kapu/balda-server/internal/board"
)

// Status is the session lifecycle state. Transitions are monotonic:
// NOT_STARTED → ACTIVE → ENDED.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusActive     Status = "ACTIVE"
	StatusEnded      Status = "ENDED"
)

// End reasons recorded on the session when it reaches ENDED.
const (
	EndForfeit   = "forfeit"
	EndNoMoves   = "no_moves"
	EndBoardFull = "board_full"
)

// Participant is one side of a session: a human user or the bot.
// Modeled as a tagged value, not a subtype; session logic is identical
// either way.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Bot  bool   `json:"bot,omitempty"`
}

// Session is the persisted state of one game. The board is never
// stored: it is always the replay of Moves over the seeded grid.
type Session struct {
	ID        string         `json:"id"`
	Players   [2]Participant `json:"players"`
	FieldSize int            `json:"field_size"`
	FirstWord string         `json:"first_word"`
	Status    Status         `json:"status"`
	Moves     []board.Move   `json:"moves"`
	Turn      int            `json:"turn"` // index into Players of the next mover
	Scores    [2]int         `json:"scores"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Winner    string         `json:"winner,omitempty"` // participant id, empty on draw
	EndReason string         `json:"end_reason,omitempty"`
}

// Board replays the move log over the seeded grid.
func (s *Session) Board() (*board.Board, error) {
	return board.Replay(s.FieldSize, s.FirstWord, s.Moves)
}

// UsedWords returns the lowercased words claimed so far.
func (s *Session) UsedWords() map[string]bool {
	out := make(map[string]bool, len(s.Moves))
	for _, mv := range s.Moves {
		out[mv.Word()] = true
	}
	return out
}

// IsParticipant reports whether userID plays in this session.
func (s *Session) IsParticipant(userID string) bool {
	return s.playerIndex(userID) >= 0
}

// playerIndex returns the participant slot for userID, or -1.
func (s *Session) playerIndex(userID string) int {
	for i, p := range s.Players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// Opponent returns the other participant.
func (s *Session) Opponent(userID string) Participant {
	if s.Players[0].ID == userID {
		return s.Players[1]
	}
	return s.Players[0]
}

// Errors surfaced by the session manager.
var (
	ErrNotFound       = errf("session not found")
	ErrNotActive      = errf("session is not active")
	ErrOutOfTurn      = errf("not this player's turn")
	ErrNotParticipant = errf("user is not a participant of this session")
	ErrConflict       = errf("concurrent update, retry")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
