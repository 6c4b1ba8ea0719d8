package notify

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/park285/cheese-solo-chess/internal/msgcat"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"github.com/park285/cheese-solo-chess/internal/session"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// Imager renders a FEN position as PNG bytes seen from the human's side.
type Imager func(ctx context.Context, fen string, human rules.Color) ([]byte, error)

const (
	queueSize   = 32
	sendTimeout = 30 * time.Second
)

type job struct {
	notice   Notice
	position string
	human    rules.Color
}

// Observer turns finished games into webhook notices. Delivery happens on a
// background worker so session handlers never wait on the network.
type Observer struct {
	sender Sender
	cat    *msgcat.Catalog
	imager Imager
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

type ObserverOption func(*Observer)

// WithImager attaches a picture of the final position to every notice.
func WithImager(fn Imager) ObserverOption {
	return func(o *Observer) { o.imager = fn }
}

func NewObserver(sender Sender, cat *msgcat.Catalog, logger *zap.Logger, opts ...ObserverOption) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Observer{sender: sender, cat: cat, logger: logger, queue: make(chan job, queueSize)}
	for _, opt := range opts {
		opt(o)
	}
	o.wg.Add(1)
	go o.run()
	return o
}

func (o *Observer) SessionEvent(_ context.Context, ev session.Event) {
	n, ok := o.noticeFor(ev)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.queue <- job{notice: n, position: ev.Position, human: ev.Human}:
	default:
		o.logger.Warn("notify_queue_full", zap.String("game_id", n.GameID))
	}
}

// Close stops accepting notices and waits for queued ones to be sent.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Observer) run() {
	defer o.wg.Done()
	for j := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if o.imager != nil && j.position != "" {
			if img, err := o.imager(ctx, j.position, j.human); err == nil {
				j.notice.ImageBase64 = base64.StdEncoding.EncodeToString(img)
			} else {
				o.logger.Warn("notify_image_failed", zap.String("game_id", j.notice.GameID), zap.Error(err))
			}
		}
		if err := o.sender.Send(ctx, j.notice); err != nil {
			o.logger.Warn("notify_send_failed", zap.String("game_id", j.notice.GameID), zap.Error(err))
		} else {
			o.logger.Info("notify_sent", zap.String("game_id", j.notice.GameID), zap.String("event", j.notice.Event))
		}
		cancel()
	}
}

func (o *Observer) noticeFor(ev session.Event) (Notice, bool) {
	if ev.Kind != session.EventGameOver && ev.Kind != session.EventResigned {
		return Notice{}, false
	}
	if len(ev.Entries) == 0 {
		return Notice{}, false
	}
	return Notice{
		Event:  string(ev.Kind),
		GameID: ev.GameID,
		Human:  string(ev.Human),
		Status: string(ev.Outcome.Status),
		Winner: string(ev.Outcome.Winner),
		Result: ev.Outcome.Result,
		Moves:  append([]string(nil), ev.Entries...),
		Text:   o.cat.Outcome(ev.Outcome),
	}, true
}
