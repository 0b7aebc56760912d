package board

import "strings"

// FindMoves enumerates legal moves: for every empty cell touching the
// letter graph and every dictionary letter, it walks simple adjacency
// chains through the placed letter and keeps the ones spelling a valid,
// unclaimed word. Prefix pruning keeps the walk cheap. Search stops
// once limit moves are found; limit <= 0 means no cap.
func (b *Board) FindMoves(dict Dictionary, used map[string]bool, maxLen, limit int) []Move {
	if maxLen <= 0 || maxLen > b.size*b.size {
		maxLen = b.size * b.size
	}
	letters := dict.Letters()
	var out []Move

	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			if b.Occupied(row, col) || !b.hasOccupiedNeighbour(row, col) {
				continue
			}
			for _, r := range letters {
				cand := CellLetter{Row: row, Col: col, Char: string(r)}
				probe := b.Place(cand)
				out = probe.pathsThrough(cand, dict, used, maxLen, limit, out)
				if limit > 0 && len(out) >= limit {
					return out
				}
			}
		}
	}
	return out
}

// HasLegalMove reports whether any legal move exists for the side to
// play. Legality does not depend on whose turn it is.
func (b *Board) HasLegalMove(dict Dictionary, used map[string]bool, maxLen int) bool {
	return len(b.FindMoves(dict, used, maxLen, 1)) > 0
}

// pathsThrough runs a DFS from every occupied cell over the probe board
// and appends moves whose path includes the added cell.
func (b *Board) pathsThrough(added CellLetter, dict Dictionary, used map[string]bool, maxLen, limit int, acc []Move) []Move {
	var walk func(path []CellLetter, word string, hasAdded bool) bool
	visited := make(map[[2]int]bool)

	walk = func(path []CellLetter, word string, hasAdded bool) bool {
		if !dict.IsPrefix(word) {
			return false
		}
		if hasAdded && len(word) >= 2 && dict.IsValidWord(word) && !used[word] {
			mv := Move{Added: added, Path: append([]CellLetter(nil), path...)}
			acc = append(acc, mv)
			if limit > 0 && len(acc) >= limit {
				return true
			}
		}
		if len(path) >= maxLen {
			return false
		}
		last := path[len(path)-1]
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nr, nc := last.Row+d[0], last.Col+d[1]
			if visited[[2]int{nr, nc}] {
				continue
			}
			ch, ok := b.At(nr, nc)
			if !ok {
				continue
			}
			next := CellLetter{Row: nr, Col: nc, Char: ch}
			visited[[2]int{nr, nc}] = true
			done := walk(append(path, next), word+ch,
				hasAdded || (nr == added.Row && nc == added.Col))
			visited[[2]int{nr, nc}] = false
			if done {
				return true
			}
		}
		return false
	}

	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			ch, ok := b.At(row, col)
			if !ok {
				continue
			}
			start := CellLetter{Row: row, Col: col, Char: ch}
			visited[[2]int{row, col}] = true
			done := walk([]CellLetter{start}, strings.ToLower(ch),
				row == added.Row && col == added.Col)
			visited[[2]int{row, col}] = false
			if done {
				return acc
			}
		}
	}
	return acc
}
