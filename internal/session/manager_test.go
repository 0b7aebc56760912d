package session

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kapu/balda-server/internal/board"
	"github.com/kapu/balda-server/internal/bot"
	"github.com/kapu/balda-server/internal/dict"
	"github.com/kapu/balda-server/internal/presence"
)

func newTestManager(t *testing.T, words []string) (*Manager, Repository, *miniredis.Miniredis) {
	return newTestManagerAt(t, words, 5, "base")
}

func newTestManagerAt(t *testing.T, words []string, fieldSize int, firstWord string) (*Manager, Repository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewMemoryRepository()
	tracker := presence.NewTracker(rdb, presence.Config{})
	d := dict.FromWords(words)
	m, err := NewManager(rdb, repo, d, tracker, ManagerConfig{FieldSize: fieldSize, FirstWord: firstWord})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.AttachBot(bot.NewGreedy(d, 8), Participant{ID: "EASYBOT", Name: "EASYBOT", Bot: true})
	return m, repo, mr
}

func human(id string) Participant { return Participant{ID: id, Name: id} }

func moveBased(dRow, dCol int) board.Move {
	return board.Move{
		Added: board.CellLetter{Row: dRow, Col: dCol, Char: "d"},
		Path: []board.CellLetter{
			{Row: 2, Col: 0, Char: "b"},
			{Row: 2, Col: 1, Char: "a"},
			{Row: 2, Col: 2, Char: "s"},
			{Row: 2, Col: 3, Char: "e"},
			{Row: dRow, Col: dCol, Char: "d"},
		},
	}
}

func moveBass() board.Move {
	return board.Move{
		Added: board.CellLetter{Row: 1, Col: 2, Char: "s"},
		Path: []board.CellLetter{
			{Row: 2, Col: 0, Char: "b"},
			{Row: 2, Col: 1, Char: "a"},
			{Row: 2, Col: 2, Char: "s"},
			{Row: 1, Col: 2, Char: "s"},
		},
	}
}

func TestSubmitMoveEndToEnd(t *testing.T) {
	m, repo, _ := newTestManager(t, []string{"based", "bass"})
	ctx := context.Background()

	s, err := m.Create(ctx, human("a1"), human("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Status != StatusActive || s.Players[0].ID != "a1" || s.Turn != 0 {
		t.Fatalf("unexpected fresh session: %+v", s)
	}

	// A plays BASE+D = BASED.
	s1, err := m.SubmitMove(ctx, s.ID, "a1", moveBased(2, 4))
	if err != nil {
		t.Fatalf("SubmitMove(a1): %v", err)
	}
	if len(s1.Moves) != 1 {
		t.Fatalf("log length = %d, want 1", len(s1.Moves))
	}
	if s1.Turn != 1 {
		t.Fatalf("turn did not flip, turn=%d", s1.Turn)
	}
	if s1.Scores[0] != 5 {
		t.Fatalf("score[0] = %d, want 5", s1.Scores[0])
	}
	if s1.Status != StatusActive {
		t.Fatalf("status = %s, want ACTIVE", s1.Status)
	}

	// A again out of turn.
	if _, err := m.SubmitMove(ctx, s.ID, "a1", moveBass()); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn, got %v", err)
	}

	// B reuses BASED via a different path: rejected.
	if _, err := m.SubmitMove(ctx, s.ID, "b1", moveBased(1, 3)); !errors.Is(err, board.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove on word reuse, got %v", err)
	}

	// B plays BASS; no word remains afterwards, so B wins on the spot.
	s2, err := m.SubmitMove(ctx, s.ID, "b1", moveBass())
	if err != nil {
		t.Fatalf("SubmitMove(b1): %v", err)
	}
	if s2.Status != StatusEnded || s2.EndReason != EndNoMoves {
		t.Fatalf("expected ended/no_moves, got %s/%s", s2.Status, s2.EndReason)
	}
	if s2.Winner != "b1" {
		t.Fatalf("winner = %q, want b1", s2.Winner)
	}

	// Terminal outcome landed on both profiles exactly once.
	pa, _ := repo.GetProfile(ctx, "a1")
	pb, _ := repo.GetProfile(ctx, "b1")
	if pa == nil || pb == nil {
		t.Fatalf("profiles missing: a=%v b=%v", pa, pb)
	}
	if pb.Wins != 1 || pa.Losses != 1 {
		t.Fatalf("counters: a1 losses=%d, b1 wins=%d", pa.Losses, pb.Wins)
	}
	if pb.Rating != 1516 || pa.Rating != 1484 {
		t.Fatalf("ratings: a1=%d b1=%d", pa.Rating, pb.Rating)
	}

	// Moves against an ended session are rejected.
	if _, err := m.SubmitMove(ctx, s.ID, "a1", moveBased(1, 3)); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

// A 2×2 board seeded with "ab" fills in two moves: BA down the left
// edge, then ABA around the corner claims the last cell.
func TestBoardFullEndsInDraw(t *testing.T) {
	m, repo, _ := newTestManagerAt(t, []string{"ba", "aba"}, 2, "ab")
	ctx := context.Background()

	s, err := m.Create(ctx, human("a1"), human("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s1, err := m.SubmitMove(ctx, s.ID, "a1", board.Move{
		Added: board.CellLetter{Row: 0, Col: 0, Char: "b"},
		Path: []board.CellLetter{
			{Row: 0, Col: 0, Char: "b"},
			{Row: 1, Col: 0, Char: "a"},
		},
	})
	if err != nil {
		t.Fatalf("SubmitMove(a1): %v", err)
	}
	if s1.Status != StatusActive {
		t.Fatalf("status after first move = %s, want ACTIVE", s1.Status)
	}

	s2, err := m.SubmitMove(ctx, s.ID, "b1", board.Move{
		Added: board.CellLetter{Row: 0, Col: 1, Char: "a"},
		Path: []board.CellLetter{
			{Row: 1, Col: 0, Char: "a"},
			{Row: 1, Col: 1, Char: "b"},
			{Row: 0, Col: 1, Char: "a"},
		},
	})
	if err != nil {
		t.Fatalf("SubmitMove(b1): %v", err)
	}
	if s2.Status != StatusEnded || s2.EndReason != EndBoardFull {
		t.Fatalf("expected ended/board_full, got %s/%s", s2.Status, s2.EndReason)
	}
	if s2.Winner != "" {
		t.Fatalf("a full board is a draw, winner = %q", s2.Winner)
	}

	// One draw each, ratings unchanged between equals.
	pa, _ := repo.GetProfile(ctx, "a1")
	pb, _ := repo.GetProfile(ctx, "b1")
	if pa == nil || pb == nil {
		t.Fatalf("profiles missing: a=%v b=%v", pa, pb)
	}
	if pa.Draws != 1 || pb.Draws != 1 {
		t.Fatalf("draw counters: a1=%d b1=%d, want 1/1", pa.Draws, pb.Draws)
	}
	if pa.Wins != 0 || pa.Losses != 0 || pb.Wins != 0 || pb.Losses != 0 {
		t.Fatalf("win/loss counters moved on a draw: a=%+v b=%+v", pa, pb)
	}
	if pa.Rating != 1500 || pb.Rating != 1500 {
		t.Fatalf("ratings after an even draw: a1=%d b1=%d", pa.Rating, pb.Rating)
	}
}

func TestNewManagerRejectsUnplayableOpening(t *testing.T) {
	d := dict.FromWords([]string{"zz"})
	_, err := NewManager(nil, NewMemoryRepository(), d, nil, ManagerConfig{FieldSize: 5, FirstWord: "base"})
	if err == nil {
		t.Fatal("expected an error when the dictionary offers no opening move")
	}
}

func TestSubmitMoveUnknownSessionAndStranger(t *testing.T) {
	m, _, _ := newTestManager(t, []string{"based"})
	ctx := context.Background()

	if _, err := m.SubmitMove(ctx, "missing", "a1", moveBased(2, 4)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s, err := m.Create(ctx, human("a1"), human("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.SubmitMove(ctx, s.ID, "intruder", moveBased(2, 4)); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestForfeitIsIdempotent(t *testing.T) {
	m, repo, _ := newTestManager(t, []string{"based"})
	ctx := context.Background()

	s, err := m.Create(ctx, human("a1"), human("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s1, err := m.Forfeit(ctx, s.ID, "b1")
	if err != nil {
		t.Fatalf("Forfeit: %v", err)
	}
	if s1.Status != StatusEnded || s1.Winner != "a1" || s1.EndReason != EndForfeit {
		t.Fatalf("unexpected forfeit result: %+v", s1)
	}

	// Second forfeit is absorbed, profiles unchanged.
	s2, err := m.Forfeit(ctx, s.ID, "b1")
	if err != nil {
		t.Fatalf("second Forfeit: %v", err)
	}
	if s2.Status != StatusEnded {
		t.Fatalf("expected ended on repeat forfeit, got %s", s2.Status)
	}
	pa, _ := repo.GetProfile(ctx, "a1")
	pb, _ := repo.GetProfile(ctx, "b1")
	if pa.Wins != 1 || pb.Losses != 1 {
		t.Fatalf("double-counted outcome: a1 wins=%d b1 losses=%d", pa.Wins, pb.Losses)
	}
}

func TestBotRepliesAfterHumanMove(t *testing.T) {
	m, _, _ := newTestManager(t, []string{"based", "bases"})
	ctx := context.Background()

	s, err := m.Create(ctx, human("a1"), m.BotPlayer())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := m.SubmitMove(ctx, s.ID, "a1", moveBased(2, 4))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if len(out.Moves) != 2 {
		t.Fatalf("expected bot reply in the log, length=%d", len(out.Moves))
	}
	if out.Moves[1].Word() != "bases" {
		t.Fatalf("bot played %q, want %q", out.Moves[1].Word(), "bases")
	}
	// Nothing left after BASES: the bot's move ends the game in its favor.
	if out.Status != StatusEnded || out.Winner != "EASYBOT" {
		t.Fatalf("expected bot win, got status=%s winner=%q", out.Status, out.Winner)
	}
}

func TestGetFallsBackToDurableStore(t *testing.T) {
	m, _, mr := newTestManager(t, []string{"based"})
	ctx := context.Background()

	s, err := m.Create(ctx, human("a1"), human("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FlushAll()

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get after flush: %v", err)
	}
	if got.ID != s.ID || got.Status != StatusActive {
		t.Fatalf("unexpected reloaded session: %+v", got)
	}
}
