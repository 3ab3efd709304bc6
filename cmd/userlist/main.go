package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/userlist/internal/app"
	"github.com/samvad-hq/userlist/internal/config"
	"github.com/samvad-hq/userlist/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "userlist failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("userlist starting", "config", map[string]any{
		"base_url":         cfg.BaseURL(),
		"fetch_mode":       cfg.FetchMode,
		"user_id":          cfg.UserID,
		"refresh_interval": cfg.RefreshInterval.String(),
		"publishers_file":  cfg.PublishersFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	viewer, err := app.New(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize viewer", "error", err.Error())
		return err
	}

	if err := viewer.Run(ctx); err != nil {
		return fmt.Errorf("viewer run: %w", err)
	}
	return nil
}
