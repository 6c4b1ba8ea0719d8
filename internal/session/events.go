package session

import (
	"context"
	"time"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

type EventKind string

const (
	EventHumanMove     EventKind = "human_move"
	EventAutomatedMove EventKind = "automated_move"
	EventGameOver      EventKind = "game_over"
	EventReset         EventKind = "reset"
	EventResigned      EventKind = "resigned"
	EventUndo          EventKind = "undo"
)

// Event is published to observers after the session lock is released.
// GameOver and Resigned events carry the full record of the finished game.
type Event struct {
	Kind      EventKind
	GameID    string
	Human     rules.Color
	Move      *rules.Move
	Outcome   rules.Outcome
	Entries   []string
	Position  string
	PGN       string
	StartedAt time.Time
	At        time.Time
}

// Observer receives session events in the order they were produced.
// Observers run on the caller's goroutine and must not call back into the
// session.
type Observer interface {
	SessionEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) SessionEvent(ctx context.Context, ev Event) { f(ctx, ev) }
