// Package sender содержит приложение воркера доставки: потребляет сообщения
// с талонами из очереди и отправляет письма по SMTP.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/config"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/smtp"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/sender"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/cache"
)

// App представляет приложение воркера доставки.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New создает новый экземпляр приложения воркера доставки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetDispatchQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewSenderService(logger, newTransport, cacheRedis)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителя очереди доставки и работает до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.DispatchQueue, a.senderService.SendCredentialEmail)
	if err != nil {
		a.logger.Error("failed to start dispatch queue consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
