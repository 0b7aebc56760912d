// Package gamelog holds the ordered, append-only record of moves for
// one session. The log serializes to JSON and is the single source of
// truth for the board: replaying it over the seeded grid reproduces the
// current position exactly.
package gamelog

import (
	"encoding/json"
	"fmt"

	"github.com/kapu/balda-server/internal/board"
)

// Log is an immutable move sequence. Append returns a new Log; the
// receiver is never modified.
type Log struct {
	moves []board.Move
}

func New() Log { return Log{} }

func FromMoves(moves []board.Move) Log {
	return Log{moves: append([]board.Move(nil), moves...)}
}

func (l Log) Len() int { return len(l.moves) }

// Moves returns a copy of the move sequence.
func (l Log) Moves() []board.Move {
	return append([]board.Move(nil), l.moves...)
}

// Append extends the log by one move.
func (l Log) Append(mv board.Move) Log {
	moves := make([]board.Move, 0, len(l.moves)+1)
	moves = append(moves, l.moves...)
	moves = append(moves, mv)
	return Log{moves: moves}
}

// Words returns the lowercased set of words claimed so far.
func (l Log) Words() map[string]bool {
	out := make(map[string]bool, len(l.moves))
	for _, mv := range l.moves {
		out[mv.Word()] = true
	}
	return out
}

// Serialize encodes the log as a JSON array of moves. An empty log
// encodes to "[]", which is valid and distinct from an absent log.
func Serialize(l Log) ([]byte, error) {
	moves := l.moves
	if moves == nil {
		moves = []board.Move{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return nil, fmt.Errorf("marshal game log: %w", err)
	}
	return raw, nil
}

// Deserialize is the inverse of Serialize; round-trips field for field.
func Deserialize(raw []byte) (Log, error) {
	var moves []board.Move
	if err := json.Unmarshal(raw, &moves); err != nil {
		return Log{}, fmt.Errorf("unmarshal game log: %w", err)
	}
	return Log{moves: moves}, nil
}
