package board

import (
	"errors"
	"testing"

	"github.com/kapu/balda-server/internal/dict"
)

func seeded(t *testing.T, size int, word string) *Board {
	t.Helper()
	b, err := New(size, word)
	if err != nil {
		t.Fatalf("New(%d, %q): %v", size, word, err)
	}
	return b
}

func TestNewSeedsCenteredMiddleRow(t *testing.T) {
	b := seeded(t, 5, "base")
	want := map[[2]int]string{
		{2, 0}: "b", {2, 1}: "a", {2, 2}: "s", {2, 3}: "e",
	}
	for pos, ch := range want {
		got, ok := b.At(pos[0], pos[1])
		if !ok || got != ch {
			t.Fatalf("cell (%d,%d): got %q occupied=%v, want %q", pos[0], pos[1], got, ok, ch)
		}
	}
	if b.Occupied(2, 4) {
		t.Fatalf("cell (2,4) should be empty")
	}
	if b.Full() {
		t.Fatalf("seeded board must not be full")
	}
}

func TestNewRejectsTooSmallField(t *testing.T) {
	if _, err := New(3, "based"); !errors.Is(err, ErrFieldTooSmall) {
		t.Fatalf("expected ErrFieldTooSmall, got %v", err)
	}
}

func TestAdjacentIsOrthogonal(t *testing.T) {
	a := CellLetter{Row: 2, Col: 2}
	cases := []struct {
		other CellLetter
		want  bool
	}{
		{CellLetter{Row: 1, Col: 2}, true},
		{CellLetter{Row: 3, Col: 2}, true},
		{CellLetter{Row: 2, Col: 1}, true},
		{CellLetter{Row: 2, Col: 3}, true},
		{CellLetter{Row: 1, Col: 1}, false}, // diagonal
		{CellLetter{Row: 2, Col: 2}, false}, // same cell
		{CellLetter{Row: 0, Col: 2}, false},
	}
	for _, tc := range cases {
		if got := Adjacent(a, tc.other); got != tc.want {
			t.Fatalf("Adjacent(%v, %v) = %v, want %v", a, tc.other, got, tc.want)
		}
	}
}

func basePath() []CellLetter {
	return []CellLetter{
		{Row: 2, Col: 0, Char: "b"},
		{Row: 2, Col: 1, Char: "a"},
		{Row: 2, Col: 2, Char: "s"},
		{Row: 2, Col: 3, Char: "e"},
	}
}

func TestApplyAcceptsLegalMove(t *testing.T) {
	b := seeded(t, 5, "base")
	d := dict.FromWords([]string{"base", "based"})
	mv := Move{
		Added: CellLetter{Row: 2, Col: 4, Char: "d"},
		Path:  append(basePath(), CellLetter{Row: 2, Col: 4, Char: "d"}),
	}
	next, err := b.Apply(mv, d, map[string]bool{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ch, ok := next.At(2, 4); !ok || ch != "d" {
		t.Fatalf("expected 'd' at (2,4), got %q occupied=%v", ch, ok)
	}
	// Original board untouched.
	if b.Occupied(2, 4) {
		t.Fatalf("Apply mutated the receiver")
	}
	if mv.Word() != "based" {
		t.Fatalf("Word() = %q, want %q", mv.Word(), "based")
	}
}

func TestApplyRejections(t *testing.T) {
	d := dict.FromWords([]string{"base", "based"})
	addedD := CellLetter{Row: 2, Col: 4, Char: "d"}

	cases := []struct {
		name string
		mv   Move
		used map[string]bool
	}{
		{
			name: "occupied cell",
			mv: Move{
				Added: CellLetter{Row: 2, Col: 0, Char: "d"},
				Path:  append(basePath(), addedD),
			},
		},
		{
			name: "detached placement",
			mv: Move{
				Added: CellLetter{Row: 0, Col: 0, Char: "d"},
				Path:  []CellLetter{{Row: 0, Col: 0, Char: "d"}},
			},
		},
		{
			name: "path skips a non-adjacent cell",
			mv: Move{
				Added: addedD,
				Path: []CellLetter{
					{Row: 2, Col: 0, Char: "b"},
					{Row: 2, Col: 1, Char: "a"},
					{Row: 2, Col: 2, Char: "s"},
					// (2,2) -> (2,4) skips the 'e' cell
					{Row: 2, Col: 4, Char: "d"},
				},
			},
		},
		{
			name: "path revisits a cell",
			mv: Move{
				Added: addedD,
				Path: []CellLetter{
					{Row: 2, Col: 3, Char: "e"},
					{Row: 2, Col: 4, Char: "d"},
					{Row: 2, Col: 3, Char: "e"},
				},
			},
		},
		{
			name: "added letter missing from path",
			mv: Move{
				Added: addedD,
				Path:  basePath(),
			},
		},
		{
			name: "word not in dictionary",
			mv: Move{
				Added: CellLetter{Row: 1, Col: 0, Char: "x"},
				Path: []CellLetter{
					{Row: 1, Col: 0, Char: "x"},
					{Row: 2, Col: 0, Char: "b"},
				},
			},
		},
		{
			name: "word already claimed",
			mv: Move{
				Added: addedD,
				Path:  append(basePath(), addedD),
			},
			used: map[string]bool{"based": true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := seeded(t, 5, "base")
			used := tc.used
			if used == nil {
				used = map[string]bool{}
			}
			if _, err := b.Apply(tc.mv, d, used); !errors.Is(err, ErrIllegalMove) {
				t.Fatalf("expected ErrIllegalMove, got %v", err)
			}
		})
	}
}

func TestHasLegalMove(t *testing.T) {
	b := seeded(t, 5, "base")
	d := dict.FromWords([]string{"based"})

	if !b.HasLegalMove(d, map[string]bool{}, 0) {
		t.Fatalf("expected a legal move while 'based' is unclaimed")
	}
	if b.HasLegalMove(d, map[string]bool{"based": true}, 0) {
		t.Fatalf("expected no legal move once the only word is claimed")
	}
}

func TestFindMovesReturnsPlayableMove(t *testing.T) {
	b := seeded(t, 5, "base")
	d := dict.FromWords([]string{"based"})
	moves := b.FindMoves(d, map[string]bool{}, 0, 1)
	if len(moves) != 1 {
		t.Fatalf("expected one move, got %d", len(moves))
	}
	if _, err := b.Apply(moves[0], d, map[string]bool{}); err != nil {
		t.Fatalf("found move does not apply: %v", err)
	}
	if moves[0].Word() != "based" {
		t.Fatalf("found word %q, want %q", moves[0].Word(), "based")
	}
}
