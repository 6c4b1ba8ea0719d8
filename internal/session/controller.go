package session

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

// RulesEngine is the move-level contract the controller delegates to.
type RulesEngine interface {
	LegalMoves() []rules.Move
	// ApplyMove returns false and leaves the position untouched when the move
	// is illegal.
	ApplyMove(from, to, promotion string) (rules.Move, bool)
	IsGameOver() bool
	Outcome() rules.Outcome
	SerializePosition() string
	UndoLastMove() error
	Reset()
	Turn() rules.Color
}

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

// Phase is the controller's state-machine position.
type Phase int

const (
	AwaitingHumanMove Phase = iota
	AwaitingAutomatedMove
	GameOver
)

func (p Phase) String() string {
	switch p {
	case AwaitingHumanMove:
		return "awaiting_human_move"
	case AwaitingAutomatedMove:
		return "awaiting_automated_move"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// promotionHint is always a queen.
const promotionHint = "q"

// State is a copy of the controller's session state.
type State struct {
	Phase    Phase
	Turn     rules.Color
	Human    rules.Color
	LastMove *rules.Move
	IsOver   bool
	Ply      int
	Outcome  rules.Outcome
}

// Reply describes what the automated side did.
type Reply struct {
	Move     *rules.Move
	Terminal bool
	Outcome  rules.Outcome
}

// Controller runs turn-taking for one game. It is not safe for concurrent
// use; Session serialises access.
type Controller struct {
	engine   RulesEngine
	ledger   *Ledger
	picker   Picker
	human    rules.Color
	phase    Phase
	lastMove *rules.Move
	outcome  rules.Outcome
}

func NewController(engine RulesEngine, ledger *Ledger, human rules.Color, picker Picker) *Controller {
	c := &Controller{engine: engine, ledger: ledger, picker: picker}
	c.begin(human)
	return c
}

// begin starts a fresh game from whatever position the engine holds.
func (c *Controller) begin(human rules.Color) {
	c.human = human
	c.lastMove = nil
	c.outcome = rules.Ongoing()
	if c.engine.Turn() == human {
		c.phase = AwaitingHumanMove
	} else {
		c.phase = AwaitingAutomatedMove
	}
}

func (c *Controller) State() State {
	st := State{
		Phase:   c.phase,
		Turn:    c.engine.Turn(),
		Human:   c.human,
		IsOver:  c.phase == GameOver,
		Ply:     c.ledger.Ply(),
		Outcome: c.outcome,
	}
	if c.lastMove != nil {
		mv := *c.lastMove
		st.LastMove = &mv
	}
	return st
}

// CanDragPiece reports whether the human may pick up piece (e.g. "wN").
func (c *Controller) CanDragPiece(piece string) bool {
	if c.phase != AwaitingHumanMove || c.engine.IsGameOver() {
		return false
	}
	p := strings.TrimSpace(piece)
	if len(p) < 2 {
		return false
	}
	turn := c.engine.Turn()
	return turn == c.human && strings.HasPrefix(p, turn.Prefix())
}

// AttemptHumanMove validates and plays the human's from→to move.
func (c *Controller) AttemptHumanMove(from, to string) (rules.Move, error) {
	switch c.phase {
	case GameOver:
		return rules.Move{}, ErrGameOver
	case AwaitingAutomatedMove:
		return rules.Move{}, ErrOutOfTurn
	}
	if c.engine.Turn() != c.human {
		return rules.Move{}, ErrOutOfTurn
	}
	mv, ok := c.engine.ApplyMove(from, to, promotionHint)
	if !ok {
		return rules.Move{}, ErrIllegalMove
	}
	c.ledger.Record(mv)
	c.lastMove = &mv
	c.phase = AwaitingAutomatedMove
	return mv, nil
}

// PlayAutomatedReply draws a uniformly random legal move and plays it, or
// ends the game when the position is already terminal.
func (c *Controller) PlayAutomatedReply() (Reply, error) {
	if c.phase != AwaitingAutomatedMove {
		return Reply{}, ErrNotAutomatedTurn
	}
	if c.engine.IsGameOver() {
		c.finish()
		return Reply{Terminal: true, Outcome: c.outcome}, nil
	}
	legal := c.engine.LegalMoves()
	if len(legal) == 0 {
		return Reply{}, ErrNoLegalMoves
	}
	pick := legal[c.picker.Intn(len(legal))]
	mv, ok := c.engine.ApplyMove(pick.From, pick.To, pick.Promotion)
	if !ok {
		return Reply{}, fmt.Errorf("rules engine rejected legal move %s", pick.UCI)
	}
	c.ledger.Record(mv)
	c.lastMove = &mv

	if c.engine.IsGameOver() {
		c.finish()
		return Reply{Move: &mv, Terminal: true, Outcome: c.outcome}, nil
	}
	c.phase = AwaitingHumanMove
	return Reply{Move: &mv, Outcome: c.outcome}, nil
}

func (c *Controller) finish() {
	c.phase = GameOver
	c.outcome = c.engine.Outcome()
}

// canUndo holds when the last recorded ply is the automated reply to a human
// move and the human is to move. A finished game stays finished.
func (c *Controller) canUndo() bool {
	if c.lastMove == nil || c.phase != AwaitingHumanMove {
		return false
	}
	return c.lastMove.Color != c.human && c.ledger.Len() >= 2
}

// rollbackPair reverts the automated reply and the human move before it.
func (c *Controller) rollbackPair() error {
	if !c.canUndo() {
		return ErrInvalidUndo
	}
	for i := 0; i < 2; i++ {
		if err := c.engine.UndoLastMove(); err != nil {
			return fmt.Errorf("undo ply: %w", err)
		}
	}
	if err := c.ledger.TruncateLastPair(); err != nil {
		return err
	}
	c.lastMove = nil
	c.outcome = rules.Ongoing()
	c.phase = AwaitingHumanMove
	return nil
}
