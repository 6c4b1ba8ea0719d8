package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

type manualTask struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler queues tasks until the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{delay: d, fn: f}
	m.tasks = append(m.tasks, task)
	return task
}

// runPending fires every task that was neither stopped nor fired.
func (m *manualScheduler) runPending() int {
	return m.run(false)
}

// runAll also fires stopped tasks, as if their timer had already expired
// when Stop was called.
func (m *manualScheduler) runAll() int {
	return m.run(true)
}

func (m *manualScheduler) run(includeStopped bool) int {
	m.mu.Lock()
	var due []*manualTask
	for _, task := range m.tasks {
		if task.fired || (task.stopped && !includeStopped) {
			continue
		}
		task.fired = true
		due = append(due, task)
	}
	m.mu.Unlock()
	for _, task := range due {
		task.fn()
	}
	return len(due)
}

func (m *manualScheduler) last() *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil
	}
	return m.tasks[len(m.tasks)-1]
}

type recordingBoard struct {
	mu      sync.Mutex
	renders []string
	resets  int
}

func (b *recordingBoard) Render(position string) {
	b.mu.Lock()
	b.renders = append(b.renders, position)
	b.mu.Unlock()
}

func (b *recordingBoard) ResetToStart() {
	b.mu.Lock()
	b.resets++
	b.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) SessionEvent(_ context.Context, ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

// firstPicker always takes the first legal move.
type firstPicker struct{}

func (firstPicker) Intn(int) int { return 0 }

// scriptPicker steers the automated side through a fixed UCI line by looking
// the wanted move up in the same legal list the controller draws from.
type scriptPicker struct {
	t      *testing.T
	engine *rules.Game
	line   []string
	next   int
}

func (p *scriptPicker) Intn(n int) int {
	p.t.Helper()
	if p.next >= len(p.line) {
		p.t.Fatalf("script exhausted")
	}
	want := p.line[p.next]
	p.next++
	for i, mv := range p.engine.LegalMoves() {
		if mv.UCI == want {
			if i >= n {
				p.t.Fatalf("legal list changed size under the picker")
			}
			return i
		}
	}
	p.t.Fatalf("scripted move %s is not legal", want)
	return 0
}

// noMovesEngine reports an empty legal-move set in a live position.
type noMovesEngine struct {
	*rules.Game
}

func (noMovesEngine) LegalMoves() []rules.Move { return nil }

type testSession struct {
	*Session
	engine *rules.Game
	sched  *manualScheduler
	board  *recordingBoard
	log    *eventLog
}

func newTestSession(t *testing.T, human rules.Color, picker Picker) *testSession {
	t.Helper()
	engine := rules.NewGame()
	sched := &manualScheduler{}
	board := &recordingBoard{}
	if picker == nil {
		picker = NewSeededPicker(7)
	}
	s := New(engine, Options{
		Human:     human,
		Delay:     DefaultReplyDelay,
		Picker:    picker,
		Scheduler: sched,
		Board:     board,
	})
	log := &eventLog{}
	s.Subscribe(log)
	return &testSession{Session: s, engine: engine, sched: sched, board: board, log: log}
}

func (ts *testSession) drop(t *testing.T, from, to string) {
	t.Helper()
	if _, err := ts.OnDrop(context.Background(), from, to); err != nil {
		t.Fatalf("drop %s%s: %v", from, to, err)
	}
}
