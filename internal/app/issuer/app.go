// Package issuer содержит одноразовое приложение прогона ежедневной выдачи.
// Запускается планировщиком (cron) раз в день; прогон идемпотентен, поэтому
// повторный запуск после сбоя безопасен.
package issuer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/config"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/token"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/migrations"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/rabbitmq"
	calendarservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/calendar"
	dispatchservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/dispatch"
	issuanceservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/issuance"
	notifierservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/notifier"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/cache"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/repository"
)

// App представляет приложение прогона выдачи.
type App struct {
	issuanceService *issuanceservice.Service
	conn            *amqp.Connection
	ch              *amqp.Channel
	db              *repository.Storage
	logger          *slog.Logger
	runBudget       time.Duration
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения прогона выдачи.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetDispatchQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}
	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	// Ключ подписи импортируется один раз на прогон.
	keyPEM, err := os.ReadFile(cfg.SigningKeyPath)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	maker, err := token.NewMaker(cfg.Issuer, keyPEM)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	notifier, err := notifierservice.New(cfg.TelegramToken, cfg.TelegramChatID, logger)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	calendarService := calendarservice.New(db, cacheRedis, logger, cfg.DefaultWeekdays, cfg.NextServiceDayBound)
	dispatchService := dispatchservice.New(ch, logger)
	issuanceService := issuanceservice.New(db, calendarService, maker, dispatchService, notifier, logger,
		issuanceservice.Options{
			Location:           location,
			Concurrency:        cfg.Concurrency,
			DispatchTimeout:    cfg.DispatchTimeout,
			RunBudget:          cfg.RunBudget,
			AlertMissingPeriod: cfg.AlertMissingPeriod,
		})

	return &App{
		issuanceService: issuanceService,
		conn:            conn,
		ch:              ch,
		db:              db,
		logger:          logger,
		runBudget:       cfg.RunBudget,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run выполняет один прогон выдачи и завершает приложение.
func (a *App) Run(ctx context.Context) error {
	if a.runBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.runBudget)
		defer cancel()
	}

	result, err := a.issuanceService.RunDailyIssuance(ctx)

	closeResources(a.ch, a.conn, a.logger)
	_ = a.db.DB.Close()

	if err != nil {
		return err
	}
	if result.Skipped {
		a.logger.Info("issuance skipped: not a service day")
		return nil
	}
	a.logger.Info("issuance run completed",
		slog.Int("issued", result.Issued),
		slog.Int("errors", len(result.Errors)))
	return nil
}
