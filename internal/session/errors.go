package session

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrOutOfTurn         = fmt.Errorf("%w: not the human side's turn", ErrIllegalMove)
	ErrInvalidUndo       = errors.New("no move pair to undo")
	ErrGameOver          = errors.New("game is over")
	ErrNotAutomatedTurn  = errors.New("automated side is not to move")
	ErrNoLegalMoves      = errors.New("automated side has no legal move in a live position")
	ErrNothingToTruncate = errors.New("ledger holds fewer than two entries")
)
