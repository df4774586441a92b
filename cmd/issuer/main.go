package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/app/issuer"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting issuance run", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := issuer.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize issuer app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("issuance run failed", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("issuance run finished")
}
