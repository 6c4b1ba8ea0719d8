package rules

import (
	"strings"
	"testing"
)

func playAll(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if _, ok := g.ApplyMove(mv[0:2], mv[2:4], ""); !ok {
			t.Fatalf("move %s rejected", mv)
		}
	}
}

func TestStartPositionHasTwentyLegalMoves(t *testing.T) {
	g := NewGame()
	moves := g.LegalMoves()
	if len(moves) != 20 {
		t.Fatalf("expected 20 legal moves, got %d", len(moves))
	}
	for _, mv := range moves {
		if mv.Color != White {
			t.Fatalf("expected white moves only, got %+v", mv)
		}
		if mv.SAN == "" || len(mv.UCI) < 4 {
			t.Fatalf("incomplete move description: %+v", mv)
		}
	}
}

func TestApplyMoveLegalAndIllegal(t *testing.T) {
	g := NewGame()
	before := g.SerializePosition()

	if _, ok := g.ApplyMove("e2", "e5", "q"); ok {
		t.Fatalf("e2e5 should be illegal")
	}
	if _, ok := g.ApplyMove("z9", "e4", ""); ok {
		t.Fatalf("malformed square should be rejected")
	}
	if g.SerializePosition() != before {
		t.Fatalf("illegal move mutated the position")
	}

	mv, ok := g.ApplyMove("E2", "e4", "q")
	if !ok {
		t.Fatalf("e2e4 rejected")
	}
	if mv.SAN != "e4" || mv.UCI != "e2e4" || mv.Color != White || mv.Promotion != "" {
		t.Fatalf("unexpected move: %+v", mv)
	}
	if g.Turn() != Black {
		t.Fatalf("expected black to move, got %s", g.Turn())
	}
}

func TestApplyMoveRejectsEmptyAndOpponentSquares(t *testing.T) {
	g := NewGame()
	before := g.SerializePosition()

	for _, mv := range [][2]string{{"e4", "e5"}, {"d4", "d5"}, {"e7", "e5"}, {"g8", "f6"}, {"e2", "e2"}} {
		if _, ok := g.ApplyMove(mv[0], mv[1], "q"); ok {
			t.Fatalf("%s%s should be illegal", mv[0], mv[1])
		}
	}
	if g.SerializePosition() != before || len(g.MovesUCI()) != 0 {
		t.Fatalf("rejected moves mutated the game")
	}
	if _, ok := g.ApplyMove("g1", "f3", "q"); !ok {
		t.Fatalf("g1f3 rejected after illegal attempts")
	}
}

func TestResignSetsPGNResult(t *testing.T) {
	g := NewGame()
	playAll(t, g, "e2e4", "e7e5")
	g.Resign(White)

	if !strings.HasSuffix(g.PGN(), "0-1") {
		t.Fatalf("expected 0-1 result in PGN, got %q", g.PGN())
	}
	if out := g.Outcome(); out.Status != StatusResigned || out.Winner != Black || out.Result != "0-1" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	g.Resign(Black)
	if !strings.HasSuffix(g.PGN(), "0-1") {
		t.Fatalf("finished game should keep its result, got %q", g.PGN())
	}
}

func TestPromotionHintOnlyWhenRequired(t *testing.T) {
	g := NewGame()
	playAll(t, g, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "g8f6")

	if _, ok := g.ApplyMove("b7", "a8", ""); ok {
		t.Fatalf("promotion without a piece should be rejected")
	}
	mv, ok := g.ApplyMove("b7", "a8", "q")
	if !ok {
		t.Fatalf("promotion with hint rejected")
	}
	if mv.Promotion != "q" || !strings.Contains(mv.SAN, "=Q") {
		t.Fatalf("expected queen promotion, got %+v", mv)
	}
}

func TestUndoLastMoveRestoresPosition(t *testing.T) {
	g := NewGame()
	start := g.SerializePosition()
	playAll(t, g, "e2e4", "e7e5")

	if err := g.UndoLastMove(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if err := g.UndoLastMove(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if g.SerializePosition() != start {
		t.Fatalf("expected start position after two undos, got %s", g.SerializePosition())
	}
	if err := g.UndoLastMove(); err == nil {
		t.Fatalf("expected error undoing an empty game")
	}
}

func TestFoolsMateIsCheckmate(t *testing.T) {
	g := NewGame()
	playAll(t, g, "f2f3", "e7e5", "g2g4", "d8h4")

	if !g.IsGameOver() {
		t.Fatalf("expected game over")
	}
	out := g.Outcome()
	if out.Status != StatusCheckmate || out.Winner != Black || out.Result != "0-1" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(g.LegalMoves()) != 0 {
		t.Fatalf("mated side should have no legal moves")
	}
}

func TestResetAndHistory(t *testing.T) {
	g := NewGame()
	playAll(t, g, "d2d4", "d7d5")
	if got := g.MovesUCI(); len(got) != 2 || got[0] != "d2d4" {
		t.Fatalf("unexpected history: %v", got)
	}
	if !strings.Contains(g.PGN(), "d4") {
		t.Fatalf("expected PGN to contain d4, got %q", g.PGN())
	}
	g.Reset()
	if len(g.MovesUCI()) != 0 || g.Turn() != White || g.IsGameOver() {
		t.Fatalf("reset did not restore the start position")
	}
	if g.Outcome() != Ongoing() {
		t.Fatalf("expected ongoing outcome, got %+v", g.Outcome())
	}
}

func TestParseColor(t *testing.T) {
	if c, ok := ParseColor(" B "); !ok || c != Black {
		t.Fatalf("expected black, got %q %v", c, ok)
	}
	if _, ok := ParseColor("random"); ok {
		t.Fatalf("random is not a side")
	}
	if White.Opponent() != Black || Black.Prefix() != "b" {
		t.Fatalf("color helpers broken")
	}
	if out := Resigned(White); out.Winner != Black || out.Result != "0-1" {
		t.Fatalf("unexpected resign outcome: %+v", out)
	}
}
