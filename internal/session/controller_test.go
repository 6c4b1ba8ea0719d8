package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

func newController(t *testing.T, picker Picker) (*Controller, *rules.Game, *Ledger) {
	t.Helper()
	engine := rules.NewGame()
	ledger := NewLedger()
	if picker == nil {
		picker = firstPicker{}
	}
	return NewController(engine, ledger, rules.White, picker), engine, ledger
}

func TestControllerInitialState(t *testing.T) {
	c, _, _ := newController(t, nil)
	st := c.State()
	if st.Phase != AwaitingHumanMove || st.Turn != rules.White || st.Human != rules.White {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.LastMove != nil || st.IsOver || st.Ply != 1 || st.Outcome != rules.Ongoing() {
		t.Fatalf("unexpected initial state: %+v", st)
	}
}

func TestAttemptHumanMoveIllegalDoesNotMutate(t *testing.T) {
	c, engine, ledger := newController(t, nil)
	before := c.State()
	fen := engine.SerializePosition()

	for _, mv := range [][2]string{{"e2", "e5"}, {"e7", "e5"}, {"a1", "a1"}, {"", "e4"}} {
		if _, err := c.AttemptHumanMove(mv[0], mv[1]); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%v: expected ErrIllegalMove, got %v", mv, err)
		}
	}
	if !reflect.DeepEqual(c.State(), before) || ledger.Len() != 0 || engine.SerializePosition() != fen {
		t.Fatalf("illegal attempts mutated session state")
	}
}

func TestAttemptHumanMoveOutOfTurn(t *testing.T) {
	c, engine, ledger := newController(t, nil)
	if _, err := c.AttemptHumanMove("e2", "e4"); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	before := c.State()
	fen := engine.SerializePosition()

	_, err := c.AttemptHumanMove("d2", "d4")
	if !errors.Is(err, ErrOutOfTurn) || !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected out-of-turn illegal move, got %v", err)
	}
	if !reflect.DeepEqual(c.State(), before) || ledger.Len() != 1 || engine.SerializePosition() != fen {
		t.Fatalf("out-of-turn attempt mutated session state")
	}
}

func TestAcceptedHumanMove(t *testing.T) {
	c, _, ledger := newController(t, nil)
	mv, err := c.AttemptHumanMove("e2", "e4")
	if err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	st := c.State()
	if st.Phase != AwaitingAutomatedMove || st.LastMove == nil || st.LastMove.UCI != mv.UCI {
		t.Fatalf("unexpected state after human move: %+v", st)
	}
	if got := ledger.Entries(); !reflect.DeepEqual(got, []string{"1. e4"}) {
		t.Fatalf("unexpected ledger: %v", got)
	}
	if st.Ply != 2 {
		t.Fatalf("expected ply 2, got %d", st.Ply)
	}
}

func TestCanDragPiece(t *testing.T) {
	c, _, _ := newController(t, nil)
	for piece, want := range map[string]bool{"wP": true, "wK": true, "bP": false, "": false, "w": false} {
		if got := c.CanDragPiece(piece); got != want {
			t.Fatalf("CanDragPiece(%q) = %v, want %v", piece, got, want)
		}
	}
	// pure predicate
	for i := 0; i < 5; i++ {
		c.CanDragPiece("wN")
	}
	if c.State().Ply != 1 {
		t.Fatalf("CanDragPiece had side effects")
	}

	if _, err := c.AttemptHumanMove("g1", "f3"); err != nil {
		t.Fatalf("g1f3: %v", err)
	}
	if c.CanDragPiece("wP") || c.CanDragPiece("bP") {
		t.Fatalf("no piece may be dragged while the reply is pending")
	}
}

func TestPlayAutomatedReplyOutOfPhase(t *testing.T) {
	c, _, _ := newController(t, nil)
	if _, err := c.PlayAutomatedReply(); !errors.Is(err, ErrNotAutomatedTurn) {
		t.Fatalf("expected ErrNotAutomatedTurn, got %v", err)
	}
}

func TestAutomatedReplyAlwaysLegal(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		c, engine, ledger := newController(t, NewSeededPicker(seed))
		for ply := 0; ply < 80; ply++ {
			human := engine.LegalMoves()
			if len(human) == 0 || c.State().IsOver {
				break
			}
			pick := human[len(human)/2]
			if _, err := c.AttemptHumanMove(pick.From, pick.To); err != nil {
				t.Fatalf("seed %d: human move %s: %v", seed, pick.UCI, err)
			}
			legal := map[string]bool{}
			for _, mv := range engine.LegalMoves() {
				legal[mv.UCI] = true
			}
			reply, err := c.PlayAutomatedReply()
			if err != nil {
				t.Fatalf("seed %d: reply: %v", seed, err)
			}
			if reply.Move != nil && !legal[reply.Move.UCI] {
				t.Fatalf("seed %d: reply %s not in legal set", seed, reply.Move.UCI)
			}
			if ledger.Ply() != ledger.Len()+1 {
				t.Fatalf("ledger invariant broken: ply=%d len=%d", ledger.Ply(), ledger.Len())
			}
			if reply.Terminal {
				break
			}
		}
	}
}

func TestAutomatedReplyDeliversMate(t *testing.T) {
	engine := rules.NewGame()
	picker := &scriptPicker{t: t, engine: engine, line: []string{"e7e5", "d8h4"}}
	c := NewController(engine, NewLedger(), rules.White, picker)

	for _, mv := range [][2]string{{"f2", "f3"}, {"g2", "g4"}} {
		if _, err := c.AttemptHumanMove(mv[0], mv[1]); err != nil {
			t.Fatalf("%v: %v", mv, err)
		}
		if _, err := c.PlayAutomatedReply(); err != nil {
			t.Fatalf("reply: %v", err)
		}
	}
	st := c.State()
	if st.Phase != GameOver || !st.IsOver {
		t.Fatalf("expected game over, got %+v", st)
	}
	if st.Outcome.Status != rules.StatusCheckmate || st.Outcome.Winner != rules.Black {
		t.Fatalf("unexpected outcome: %+v", st.Outcome)
	}
	if _, err := c.AttemptHumanMove("e2", "e4"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if c.CanDragPiece("wP") {
		t.Fatalf("dragging allowed after game over")
	}
}

func TestTerminalPositionBeforeReply(t *testing.T) {
	engine := rules.NewGame()
	picker := &scriptPicker{t: t, engine: engine, line: []string{"e7e5", "b8c6", "g8f6"}}
	c := NewController(engine, NewLedger(), rules.White, picker)

	line := [][2]string{{"e2", "e4"}, {"f1", "c4"}, {"d1", "h5"}}
	for _, mv := range line {
		if _, err := c.AttemptHumanMove(mv[0], mv[1]); err != nil {
			t.Fatalf("%v: %v", mv, err)
		}
		if _, err := c.PlayAutomatedReply(); err != nil {
			t.Fatalf("reply: %v", err)
		}
	}
	if _, err := c.AttemptHumanMove("h5", "f7"); err != nil {
		t.Fatalf("Qxf7#: %v", err)
	}
	reply, err := c.PlayAutomatedReply()
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !reply.Terminal || reply.Move != nil {
		t.Fatalf("expected terminal reply without a move, got %+v", reply)
	}
	if reply.Outcome.Winner != rules.White || c.State().Phase != GameOver {
		t.Fatalf("unexpected outcome: %+v", reply.Outcome)
	}
	if err := c.rollbackPair(); !errors.Is(err, ErrInvalidUndo) {
		t.Fatalf("undo after the human's mating move should fail, got %v", err)
	}
}

func TestNoLegalMovesInLivePosition(t *testing.T) {
	engine := noMovesEngine{Game: rules.NewGame()}
	c := NewController(engine, NewLedger(), rules.White, firstPicker{})
	if _, err := c.AttemptHumanMove("e2", "e4"); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if _, err := c.PlayAutomatedReply(); !errors.Is(err, ErrNoLegalMoves) {
		t.Fatalf("expected ErrNoLegalMoves, got %v", err)
	}
	if c.State().Phase != AwaitingAutomatedMove {
		t.Fatalf("failed reply changed phase")
	}
}
