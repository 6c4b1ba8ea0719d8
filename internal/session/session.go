package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"go.uber.org/zap"
)

const DefaultReplyDelay = 250 * time.Millisecond

type Options struct {
	// Human is the configured human side; resign always hands the human
	// black for the next game, reset restores this value.
	Human     rules.Color
	Delay     time.Duration
	Picker    Picker
	Scheduler Scheduler
	Board     Board
	Logger    *zap.Logger
}

// Snapshot is a consistent copy of everything a client needs to draw the
// session.
type Snapshot struct {
	GameID     string
	State      State
	Position   string
	Entries    []string
	History    string
	Generation uint64
	Pending    bool
	StartedAt  time.Time
}

// DropResult answers a drop gesture; Snapback tells the board to revert.
type DropResult struct {
	Snapback bool
	Move     *rules.Move
}

// Session owns one game: the controller, its ledger and the pending
// automated reply. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	engine RulesEngine
	ledger *Ledger
	ctrl   *Controller
	board  Board
	sched  Scheduler
	delay  time.Duration
	human  rules.Color
	logger *zap.Logger

	generation uint64
	pending    Timer
	gameID     string
	startedAt  time.Time

	// dispatchMu orders event delivery; it is acquired while mu is held.
	dispatchMu sync.Mutex
	obsMu      sync.RWMutex
	observers  []Observer
}

func New(engine RulesEngine, opts Options) *Session {
	if opts.Human != rules.Black {
		opts.Human = rules.White
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Picker == nil {
		opts.Picker = &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = clockScheduler{}
	}
	if opts.Board == nil {
		opts.Board = nopBoard{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ledger := NewLedger()
	s := &Session{
		engine: engine,
		ledger: ledger,
		board:  opts.Board,
		sched:  opts.Scheduler,
		delay:  opts.Delay,
		human:  opts.Human,
		logger: opts.Logger,
	}
	engine.Reset()
	s.ctrl = NewController(engine, ledger, opts.Human, opts.Picker)
	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
	return s
}

// Subscribe registers o for all future events.
func (s *Session) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		GameID:     s.gameID,
		State:      s.ctrl.State(),
		Position:   s.engine.SerializePosition(),
		Entries:    s.ledger.Entries(),
		History:    s.ledger.Text(),
		Generation: s.generation,
		Pending:    s.pending != nil,
		StartedAt:  s.startedAt,
	}
}

// OnDragStart gates drag initiation on the board.
func (s *Session) OnDragStart(source, piece string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.CanDragPiece(piece)
}

// OnDrop handles a human move gesture. On success the automated reply is
// scheduled after the configured delay.
func (s *Session) OnDrop(ctx context.Context, source, target string) (DropResult, error) {
	var (
		res DropResult
		err error
	)
	s.locked(ctx, func() []Event {
		mv, aerr := s.ctrl.AttemptHumanMove(source, target)
		if aerr != nil {
			res, err = DropResult{Snapback: true}, aerr
			return nil
		}
		s.logger.Info("session_human_move",
			zap.String("game_id", s.gameID),
			zap.String("uci", mv.UCI),
			zap.String("san", mv.SAN),
			zap.Int("ply", s.ledger.Ply()-1),
		)
		res = DropResult{Move: &mv}
		events := []Event{s.eventLocked(EventHumanMove, &mv)}
		s.scheduleReplyLocked()
		return events
	})
	if err != nil {
		s.logger.Debug("session_human_move_rejected",
			zap.String("from", source),
			zap.String("to", target),
			zap.Error(err),
		)
	}
	return res, err
}

// OnSnapEnd redraws the board after the drop animation.
func (s *Session) OnSnapEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Render(s.engine.SerializePosition())
}

// Reset starts a new game with the configured human side.
func (s *Session) Reset(ctx context.Context) error {
	s.locked(ctx, func() []Event {
		s.cancelPendingLocked()
		s.engine.Reset()
		s.ledger.Clear()
		s.ctrl.begin(s.human)
		events := s.startLocked()
		s.logger.Info("session_reset", zap.String("game_id", s.gameID), zap.String("human", string(s.human)))
		return events
	})
	return nil
}

// Resign abandons the current game and starts a new one in which the
// automated side plays first. The automated opening move is made before
// Resign returns.
func (s *Session) Resign(ctx context.Context) (Reply, error) {
	var reply Reply
	s.locked(ctx, func() []Event {
		var events []Event
		// A finished game was already reported by its game_over event.
		if s.ctrl.phase != GameOver {
			if r, ok := s.engine.(interface{ Resign(rules.Color) }); ok {
				r.Resign(s.ctrl.human)
			}
			resigned := s.eventLocked(EventResigned, nil)
			resigned.Outcome = rules.Resigned(s.ctrl.human)
			events = append(events, resigned)
		}
		previous, plies := s.gameID, s.ledger.Len()

		s.cancelPendingLocked()
		s.engine.Reset()
		s.ledger.Clear()
		s.ctrl.begin(rules.Black)
		events = append(events, s.startLocked()...)

		if st := s.ctrl.State(); st.LastMove != nil {
			reply.Move = st.LastMove
		}
		s.logger.Info("session_resign",
			zap.String("previous_game_id", previous),
			zap.String("game_id", s.gameID),
			zap.Int("previous_plies", plies),
		)
		return events
	})
	return reply, nil
}

// Undo takes back the last human move and the automated reply to it.
func (s *Session) Undo(ctx context.Context) error {
	var err error
	s.locked(ctx, func() []Event {
		if rerr := s.ctrl.rollbackPair(); rerr != nil {
			if errors.Is(rerr, ErrInvalidUndo) {
				err = rerr
				return nil
			}
			s.logger.Error("session_undo_failed", zap.String("game_id", s.gameID), zap.Error(rerr))
			err = fmt.Errorf("undo: %w", rerr)
			return nil
		}
		s.cancelPendingLocked()
		s.board.Render(s.engine.SerializePosition())
		s.logger.Info("session_undo", zap.String("game_id", s.gameID), zap.Int("ply", s.ledger.Ply()))
		return []Event{s.eventLocked(EventUndo, nil)}
	})
	return err
}

// Close stops any pending reply. The session stays usable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
}

// locked runs fn under the session lock and publishes the events it returns
// once the lock is released. The dispatch lock is taken before the session
// lock is dropped, so observers see events in the order they were produced.
func (s *Session) locked(ctx context.Context, fn func() []Event) {
	events := func() []Event {
		s.mu.Lock()
		defer s.mu.Unlock()
		events := fn()
		if len(events) > 0 {
			s.dispatchMu.Lock()
		}
		return events
	}()
	if len(events) == 0 {
		return
	}
	defer s.dispatchMu.Unlock()
	s.dispatch(ctx, events)
}

// startLocked opens a new game on the already reset engine and controller.
// When the automated side has the first move it is played immediately.
func (s *Session) startLocked() []Event {
	s.gameID = uuid.NewString()
	s.startedAt = time.Now()
	s.board.ResetToStart()
	events := []Event{s.eventLocked(EventReset, nil)}
	if s.ctrl.State().Phase == AwaitingAutomatedMove {
		events = append(events, s.playReplyLocked()...)
	}
	return events
}

func (s *Session) scheduleReplyLocked() {
	gen := s.generation
	s.pending = s.sched.AfterFunc(s.delay, func() { s.fireReply(gen) })
}

// cancelPendingLocked stops the pending reply and advances the generation
// so a reply that already started waiting for the lock is discarded.
func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.generation++
}

func (s *Session) fireReply(gen uint64) {
	s.locked(context.Background(), func() []Event {
		if gen != s.generation {
			s.logger.Info("session_reply_stale", zap.Uint64("scheduled", gen), zap.Uint64("current", s.generation))
			return nil
		}
		s.pending = nil
		return s.playReplyLocked()
	})
}

func (s *Session) playReplyLocked() []Event {
	reply, err := s.ctrl.PlayAutomatedReply()
	if err != nil {
		s.logger.Error("session_reply_failed", zap.String("game_id", s.gameID), zap.Error(err))
		return nil
	}
	var events []Event
	if reply.Move != nil {
		s.board.Render(s.engine.SerializePosition())
		s.logger.Info("session_automated_move",
			zap.String("game_id", s.gameID),
			zap.String("uci", reply.Move.UCI),
			zap.String("san", reply.Move.SAN),
			zap.Int("ply", s.ledger.Ply()-1),
		)
		events = append(events, s.eventLocked(EventAutomatedMove, reply.Move))
	}
	if reply.Terminal {
		ev := s.eventLocked(EventGameOver, nil)
		ev.Outcome = reply.Outcome
		s.logger.Info("session_game_over",
			zap.String("game_id", s.gameID),
			zap.String("status", string(reply.Outcome.Status)),
			zap.String("result", reply.Outcome.Result),
		)
		events = append(events, ev)
	}
	return events
}

func (s *Session) eventLocked(kind EventKind, mv *rules.Move) Event {
	ev := Event{
		Kind:      kind,
		GameID:    s.gameID,
		Human:     s.ctrl.human,
		Move:      mv,
		Outcome:   s.ctrl.outcome,
		Entries:   s.ledger.Entries(),
		Position:  s.engine.SerializePosition(),
		StartedAt: s.startedAt,
		At:        time.Now(),
	}
	if kind == EventGameOver || kind == EventResigned {
		if p, ok := s.engine.(interface{ PGN() string }); ok {
			ev.PGN = p.PGN()
		}
	}
	return ev
}

func (s *Session) dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, ev := range events {
		for _, o := range observers {
			o.SessionEvent(ctx, ev)
		}
	}
}

// lockedRand guards a math/rand source; the session lock already serialises
// callers but the picker may be shared.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewSeededPicker returns a Picker over math/rand seeded with seed.
func NewSeededPicker(seed int64) Picker {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}
