// Package bot holds the computer opponent. The engine treats it as a
// policy object: given a position, propose one legal move.
package bot

import (
	"context"
	"sort"

	"github.com/kapu/balda-server/internal/board"
)

// Policy proposes a legal move for the current position. ok is false
// when the policy finds nothing to play.
type Policy interface {
	ProposeMove(ctx context.Context, b *board.Board, used map[string]bool) (board.Move, bool)
}

// Greedy plays the longest word it can find, capped at maxWordLen.
type Greedy struct {
	dict       board.Dictionary
	maxWordLen int
}

func NewGreedy(dict board.Dictionary, maxWordLen int) *Greedy {
	if maxWordLen <= 0 {
		maxWordLen = 8
	}
	return &Greedy{dict: dict, maxWordLen: maxWordLen}
}

func (g *Greedy) ProposeMove(ctx context.Context, b *board.Board, used map[string]bool) (board.Move, bool) {
	moves := b.FindMoves(g.dict, used, g.maxWordLen, 0)
	if len(moves) == 0 {
		return board.Move{}, false
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return len([]rune(moves[i].Word())) > len([]rune(moves[j].Word()))
	})
	return moves[0], true
}
