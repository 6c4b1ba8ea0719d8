package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-solo-chess/internal/chessbuilder"
	appcfg "github.com/park285/cheese-solo-chess/internal/config"
	"github.com/park285/cheese-solo-chess/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	deps, err := chessbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- deps.Server.Listen(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Server.Close(ctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("deps_close_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
