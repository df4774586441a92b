// Package dispatch реализует коллаборатора доставки талона со стороны
// оркестратора: сообщение с письмом публикуется в обменник credentials,
// откуда его забирает воркер доставки. Ключ идемпотентности кладётся в
// MessageId, чтобы повтор на транспортном уровне не породил дубль письма.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	librabbitmq "github.com/magabrotheeeer/meal-credential-issuer/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/rabbitmq"
)

// Service публикует сообщения доставки талонов.
type Service struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый экземпляр Service.
func New(ch *amqp.Channel, log *slog.Logger) *Service {
	return &Service{ch: ch, log: log}
}

// Send публикует сообщение доставки. Контекст проверяется до публикации:
// просроченный дедлайн доставки считается обычной ошибкой клиента.
func (s *Service) Send(ctx context.Context, msg models.DispatchMessage) error {
	const op = "dispatch.Send"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if err := librabbitmq.PublishMessage(s.ch, rabbitmq.Exchange, rabbitmq.DispatchRoutingKey,
		msg.IdempotencyKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("credential dispatch published",
		slog.String("recipient", msg.Recipient),
		slog.String("idempotency_key", msg.IdempotencyKey))
	return nil
}
