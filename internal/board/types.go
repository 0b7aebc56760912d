package board

import (
	"errors"
	"fmt"
	"strings"
)

// CellLetter is one occupied cell: position plus its letter.
type CellLetter struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Char string `json:"char"`
}

// Move is one ply: the letter being placed and the claimed word path.
// The path must be a simple 4-adjacent chain that contains the added
// cell exactly once.
type Move struct {
	Added CellLetter   `json:"added"`
	Path  []CellLetter `json:"path"`
}

// Word returns the claimed word, lowercased.
func (m Move) Word() string {
	var b strings.Builder
	for _, c := range m.Path {
		b.WriteString(strings.ToLower(c.Char))
	}
	return b.String()
}

// Dictionary is the injected word lookup. IsPrefix and Letters exist so
// move search can prune instead of enumerating every path on the grid.
type Dictionary interface {
	IsValidWord(word string) bool
	IsPrefix(prefix string) bool
	Letters() []rune
}

var (
	// ErrFieldTooSmall is a configuration error: the grid cannot hold
	// the seed word.
	ErrFieldTooSmall = errors.New("field smaller than first word")

	// ErrIllegalMove covers every recoverable move rejection. Callers
	// match with errors.Is; the wrapped text names the reason.
	ErrIllegalMove = errors.New("illegal move")
)

func illegalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIllegalMove}, args...)...)
}
