package gamelog

import (
	"reflect"
	"testing"

	"github.com/kapu/balda-server/internal/board"
)

func sampleMove() board.Move {
	return board.Move{
		Added: board.CellLetter{Row: 2, Col: 4, Char: "d"},
		Path: []board.CellLetter{
			{Row: 2, Col: 0, Char: "b"},
			{Row: 2, Col: 1, Char: "a"},
			{Row: 2, Col: 2, Char: "s"},
			{Row: 2, Col: 3, Char: "e"},
			{Row: 2, Col: 4, Char: "d"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	l := New().Append(sampleMove()).Append(board.Move{
		Added: board.CellLetter{Row: 1, Col: 2, Char: "s"},
		Path: []board.CellLetter{
			{Row: 2, Col: 0, Char: "b"},
			{Row: 2, Col: 1, Char: "a"},
			{Row: 2, Col: 2, Char: "s"},
			{Row: 1, Col: 2, Char: "s"},
		},
	})

	raw, err := Serialize(l)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got.Moves(), l.Moves()) {
		t.Fatalf("round-trip mismatch:\n got %#v\nwant %#v", got.Moves(), l.Moves())
	}
}

func TestEmptyLogRoundTrip(t *testing.T) {
	raw, err := Serialize(New())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("empty log serialized to %q, want []", raw)
	}
	got, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected empty log, got %d moves", got.Len())
	}
}

func TestAppendDoesNotMutateReceiver(t *testing.T) {
	l0 := New()
	l1 := l0.Append(sampleMove())
	if l0.Len() != 0 || l1.Len() != 1 {
		t.Fatalf("unexpected lengths: l0=%d l1=%d", l0.Len(), l1.Len())
	}
}

func TestWords(t *testing.T) {
	l := New().Append(sampleMove())
	words := l.Words()
	if !words["based"] || len(words) != 1 {
		t.Fatalf("unexpected words: %v", words)
	}
}
