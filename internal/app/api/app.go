package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/config"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/token"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/migrations"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/rabbitmq"
	calendarservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/calendar"
	dispatchservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/dispatch"
	issuanceservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/issuance"
	notifierservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/notifier"
	scheduleservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/schedule"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/cache"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/repository"
)

// App представляет HTTP-приложение административной поверхности.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetDispatchQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	keyPEM, err := os.ReadFile(cfg.SigningKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	maker, err := token.NewMaker(cfg.Issuer, keyPEM)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	notifier, err := notifierservice.New(cfg.TelegramToken, cfg.TelegramChatID, logger)
	if err != nil {
		return nil, err
	}

	calendarService := calendarservice.New(db, cacheRedis, logger, cfg.DefaultWeekdays, cfg.NextServiceDayBound)
	scheduleService := scheduleservice.New(db, cacheRedis, logger)
	dispatchService := dispatchservice.New(ch, logger)
	issuanceService := issuanceservice.New(db, calendarService, maker, dispatchService, notifier, logger,
		issuanceservice.Options{
			Location:           location,
			Concurrency:        cfg.Concurrency,
			DispatchTimeout:    cfg.DispatchTimeout,
			RunBudget:          cfg.RunBudget,
			AlertMissingPeriod: cfg.AlertMissingPeriod,
		})

	router := chi.NewRouter()
	RegisterRoutes(router, logger, scheduleService, issuanceService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и корректно завершает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		_ = a.db.DB.Close()
		return err
	}
}
