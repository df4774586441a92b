// Package notifier отправляет оповещения операторам в Telegram-канал.
// Канал необязателен: без токена сервис работает как no-op. Сбой
// оповещения никогда не должен ухудшать итоговый статус прогона выдачи,
// поэтому вызывающие стороны только логируют ошибку Notify.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Service отправляет текстовые сообщения в операторский чат.
type Service struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// New создает новый экземпляр Service. Пустой токен отключает оповещения.
func New(token string, chatID int64, log *slog.Logger) (*Service, error) {
	const op = "notifier.New"
	if token == "" {
		log.Info("operator notifications disabled: no telegram token configured")
		return &Service{log: log}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Service{bot: bot, chatID: chatID, log: log}, nil
}

// Enabled сообщает, настроен ли операторский канал.
func (s *Service) Enabled() bool {
	return s.bot != nil
}

// Notify отправляет текст в операторский чат.
func (s *Service) Notify(ctx context.Context, text string) error {
	const op = "notifier.Notify"
	if s.bot == nil {
		s.log.Debug("operator notification skipped", slog.String("text", text))
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
