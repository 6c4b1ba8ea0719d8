package archive

import (
	"context"
	"time"

	"github.com/park285/cheese-solo-chess/internal/domain"
	"github.com/park285/cheese-solo-chess/internal/session"
	"go.uber.org/zap"
)

// Recorder stores finished games.
type Recorder interface {
	Record(ctx context.Context, game *domain.SoloGame) error
}

// Lister returns the most recently finished games, newest first.
type Lister interface {
	Recent(ctx context.Context, n int) ([]*domain.SoloGame, error)
}

const recordTimeout = 5 * time.Second

// FromEvent builds the archive record for a game_over or resigned event.
// Games without a single move are not worth keeping.
func FromEvent(ev session.Event) (*domain.SoloGame, bool) {
	if ev.Kind != session.EventGameOver && ev.Kind != session.EventResigned {
		return nil, false
	}
	if len(ev.Entries) == 0 {
		return nil, false
	}
	ended := ev.At
	if ended.IsZero() {
		ended = time.Now()
	}
	duration := ended.Sub(ev.StartedAt)
	if ev.StartedAt.IsZero() || duration < 0 {
		duration = 0
	}
	return &domain.SoloGame{
		GameID:       ev.GameID,
		HumanColor:   string(ev.Human),
		Status:       string(ev.Outcome.Status),
		Winner:       string(ev.Outcome.Winner),
		Result:       ev.Outcome.Result,
		ResultMethod: ev.Outcome.Method,
		Moves:        append([]string(nil), ev.Entries...),
		PGN:          ev.PGN,
		StartedAt:    ev.StartedAt,
		EndedAt:      ended,
		Duration:     duration,
	}, true
}

// Observer records finished games published by a session.
type Observer struct {
	rec    Recorder
	logger *zap.Logger
}

func NewObserver(rec Recorder, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{rec: rec, logger: logger}
}

func (o *Observer) SessionEvent(ctx context.Context, ev session.Event) {
	game, ok := FromEvent(ev)
	if !ok || o.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := o.rec.Record(ctx, game); err != nil {
		o.logger.Warn("archive_record_failed", zap.String("game_id", game.GameID), zap.Error(err))
		return
	}
	o.logger.Info("archive_recorded",
		zap.String("game_id", game.GameID),
		zap.String("status", game.Status),
		zap.String("result", game.Result),
		zap.Int("moves", len(game.Moves)),
	)
}
