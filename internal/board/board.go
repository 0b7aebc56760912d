package board

import (
	"strings"
)

// Board is an N×N grid of optional letters. The zero rune marks an
// empty cell. Boards are value-copied on Apply; a Board is never
// mutated in place once handed out.
type Board struct {
	size  int
	cells []rune // row-major, 0 == empty
}

// New seeds an N×N board with firstWord placed left-to-right centered
// on the middle row. Returns ErrFieldTooSmall when the word does not fit.
func New(size int, firstWord string) (*Board, error) {
	word := []rune(strings.ToLower(strings.TrimSpace(firstWord)))
	if size < 1 || len(word) == 0 || len(word) > size {
		return nil, ErrFieldTooSmall
	}
	b := &Board{size: size, cells: make([]rune, size*size)}
	row := size / 2
	start := (size - len(word)) / 2
	for i, r := range word {
		b.cells[row*size+start+i] = r
	}
	return b, nil
}

func (b *Board) Size() int { return b.size }

func (b *Board) inBounds(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// At returns the letter at (row, col) and whether the cell is occupied.
func (b *Board) At(row, col int) (string, bool) {
	if !b.inBounds(row, col) {
		return "", false
	}
	r := b.cells[row*b.size+col]
	if r == 0 {
		return "", false
	}
	return string(r), true
}

func (b *Board) Occupied(row, col int) bool {
	_, ok := b.At(row, col)
	return ok
}

// Full reports whether every cell carries a letter.
func (b *Board) Full() bool {
	for _, r := range b.cells {
		if r == 0 {
			return false
		}
	}
	return true
}

func (b *Board) clone() *Board {
	cells := make([]rune, len(b.cells))
	copy(cells, b.cells)
	return &Board{size: b.size, cells: cells}
}

// Adjacent reports 4-neighbour (orthogonal) adjacency, the classical
// Balda rule. Diagonal cells are not adjacent.
func Adjacent(a, b CellLetter) bool {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr+dc == 1
}

// hasOccupiedNeighbour reports whether (row, col) touches the existing
// letter graph.
func (b *Board) hasOccupiedNeighbour(row, col int) bool {
	return b.Occupied(row-1, col) || b.Occupied(row+1, col) ||
		b.Occupied(row, col-1) || b.Occupied(row, col+1)
}

// Apply validates mv against the current board, the dictionary and the
// set of words already claimed this session (lowercased), and returns a
// new board with the letter placed. The receiver is left untouched.
func (b *Board) Apply(mv Move, dict Dictionary, used map[string]bool) (*Board, error) {
	added := mv.Added
	ch := []rune(strings.ToLower(added.Char))
	if len(ch) != 1 {
		return nil, illegalf("added letter must be a single character")
	}
	if !b.inBounds(added.Row, added.Col) {
		return nil, illegalf("cell (%d,%d) out of bounds", added.Row, added.Col)
	}
	if b.Occupied(added.Row, added.Col) {
		return nil, illegalf("cell (%d,%d) already occupied", added.Row, added.Col)
	}
	if !b.hasOccupiedNeighbour(added.Row, added.Col) {
		return nil, illegalf("cell (%d,%d) does not touch an occupied cell", added.Row, added.Col)
	}
	if len(mv.Path) == 0 {
		return nil, illegalf("empty word path")
	}

	next := b.clone()
	next.cells[added.Row*next.size+added.Col] = ch[0]

	addedCount := 0
	seen := make(map[[2]int]bool, len(mv.Path))
	for i, c := range mv.Path {
		key := [2]int{c.Row, c.Col}
		if seen[key] {
			return nil, illegalf("path revisits cell (%d,%d)", c.Row, c.Col)
		}
		seen[key] = true
		got, ok := next.At(c.Row, c.Col)
		if !ok || got != strings.ToLower(c.Char) {
			return nil, illegalf("path cell (%d,%d) does not match the board", c.Row, c.Col)
		}
		if c.Row == added.Row && c.Col == added.Col {
			addedCount++
		}
		if i > 0 && !Adjacent(mv.Path[i-1], c) {
			return nil, illegalf("path cells (%d,%d) and (%d,%d) are not adjacent",
				mv.Path[i-1].Row, mv.Path[i-1].Col, c.Row, c.Col)
		}
	}
	if addedCount != 1 {
		return nil, illegalf("added letter must appear in the path exactly once")
	}

	word := mv.Word()
	if used[word] {
		return nil, illegalf("word %q already claimed", word)
	}
	if !dict.IsValidWord(word) {
		return nil, illegalf("word %q not in dictionary", word)
	}
	return next, nil
}

// Place writes a letter without validation. Used when replaying an
// already-validated game log.
func (b *Board) Place(c CellLetter) *Board {
	next := b.clone()
	ch := []rune(strings.ToLower(c.Char))
	if len(ch) == 1 && next.inBounds(c.Row, c.Col) {
		next.cells[c.Row*next.size+c.Col] = ch[0]
	}
	return next
}

// Replay rebuilds the board implied by a seed word and an ordered move
// sequence. Moves are trusted; validation happened when they were
// accepted.
func Replay(size int, firstWord string, moves []Move) (*Board, error) {
	b, err := New(size, firstWord)
	if err != nil {
		return nil, err
	}
	for _, mv := range moves {
		b = b.Place(mv.Added)
	}
	return b, nil
}
