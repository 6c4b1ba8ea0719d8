package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-solo-chess/internal/archive"
	"github.com/park285/cheese-solo-chess/internal/config"
	"github.com/park285/cheese-solo-chess/internal/httpapi"
	"github.com/park285/cheese-solo-chess/internal/msgcat"
	"github.com/park285/cheese-solo-chess/internal/notify"
	"github.com/park285/cheese-solo-chess/internal/render"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"github.com/park285/cheese-solo-chess/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is the assembled application: one session behind one HTTP server.
type Deps struct {
	Session  *session.Session
	Server   *httpapi.Server
	Renderer *render.PNGRenderer
	Catalog  *msgcat.Catalog
	Games    archive.Lister

	closers []func() error
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat
	d.Renderer = render.NewPNGRenderer(cfg.BoardSquarePx)

	// Archive: memory always, Redis and Postgres when configured. The most
	// durable store answers listings.
	mem := archive.NewMemoryStore(cfg.ArchiveLimit)
	recorders := archive.Multi{mem}
	var lister archive.Lister = mem

	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, perr := archive.ParseRedisURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		rdb := redis.NewClient(opts)
		d.closers = append(d.closers, rdb.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		rs := archive.NewRedisStore(rdb, cfg.ArchiveLimit)
		recorders = append(recorders, rs)
		lister = rs
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, perr := archive.NewPostgresStore(cfg.DatabaseURL)
		if perr != nil {
			return nil, fmt.Errorf("init postgres: %w", perr)
		}
		d.closers = append(d.closers, pg.Close)
		recorders = append(recorders, pg)
		lister = pg
	}
	d.Games = lister

	opts := session.Options{
		Human:  cfg.HumanColor,
		Delay:  cfg.ReplyDelay,
		Logger: logger.Named("session"),
	}
	if cfg.HasSeed {
		opts.Picker = session.NewSeededPicker(cfg.RandomSeed)
	}
	hub := httpapi.NewHub(logger.Named("ws"))
	opts.Board = hub
	sess := session.New(rules.NewGame(), opts)
	d.Session = sess
	d.closers = append(d.closers, func() error { sess.Close(); return nil })

	sess.Subscribe(archive.NewObserver(recorders, logger.Named("archive")))

	if strings.TrimSpace(cfg.WebhookURL) != "" {
		client := notify.NewClient(cfg.WebhookURL)
		obs := notify.NewObserver(client, cat, logger.Named("notify"), notify.WithImager(boardImager(d.Renderer)))
		sess.Subscribe(obs)
		d.closers = append(d.closers, func() error { obs.Close(); return nil })
	}

	d.Server = httpapi.NewServer(httpapi.Deps{
		Session:    sess,
		Hub:        hub,
		Renderer:   d.Renderer,
		Games:      lister,
		Catalog:    cat,
		Logger:     logger.Named("http"),
		GamesLimit: cfg.ArchiveLimit,
	})

	logger.Info("solochess_ready",
		zap.String("human", string(cfg.HumanColor)),
		zap.Duration("reply_delay", cfg.ReplyDelay),
		zap.Bool("redis", strings.TrimSpace(cfg.RedisURL) != ""),
		zap.Bool("postgres", strings.TrimSpace(cfg.DatabaseURL) != ""),
		zap.Bool("webhook", strings.TrimSpace(cfg.WebhookURL) != ""),
	)
	ok = true
	return d, nil
}

// boardImager draws the final position from the side the human played in
// that game, which differs from the configured side after a resign.
func boardImager(r *render.PNGRenderer) notify.Imager {
	return func(ctx context.Context, fen string, human rules.Color) ([]byte, error) {
		return r.RenderFEN(ctx, fen, render.Options{Orientation: human})
	}
}

// Close releases stores and background workers in reverse order of creation.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
