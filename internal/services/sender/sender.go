// Package sender реализует воркер доставки: принимает из очереди сообщение
// с талоном, отсекает дубликаты по ключу идемпотентности и отправляет
// письмо с вложением по SMTP.
package sender

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/smtp"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// dedupTTL — сколько хранится отметка об отправленном письме.
// Дольше суток, чтобы пережить повторную доставку сообщения брокером.
const dedupTTL = 48 * time.Hour

// Deduplicator описывает хранилище отметок об уже отправленных письмах.
type Deduplicator interface {
	// SetNX записывает значение, только если ключа ещё нет.
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

// SenderService отправляет письма с талонами.
type SenderService struct {
	transport smtp.TransportInterface
	dedup     Deduplicator
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface, dedup Deduplicator) *SenderService {
	return &SenderService{
		transport: transport,
		dedup:     dedup,
		log:       log,
	}
}

// SendCredentialEmail обрабатывает одно сообщение доставки из очереди.
func (s *SenderService) SendCredentialEmail(body []byte) error {
	var message models.DispatchMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal dispatch message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	if message.IdempotencyKey != "" && s.dedup != nil {
		first, err := s.dedup.SetNX(context.Background(), "dispatch:sent:"+message.IdempotencyKey,
			time.Now().Unix(), dedupTTL)
		if err != nil {
			// Хранилище отметок недоступно: лучше рискнуть дублем,
			// чем потерять письмо.
			s.log.Warn("dedup store unavailable, sending anyway", sl.Err(err))
		} else if !first {
			s.log.Info("duplicate dispatch suppressed",
				slog.String("idempotency_key", message.IdempotencyKey))
			return nil
		}
	}

	raw, err := s.buildMIME(message)
	if err != nil {
		return err
	}
	return s.sendEmail([]string{message.Recipient}, raw)
}

// buildMIME собирает письмо multipart/mixed: текстовая часть и вложение
// с подписанным талоном.
func (s *SenderService) buildMIME(message models.DispatchMessage) ([]byte, error) {
	const op = "sender.buildMIME"
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + message.Recipient,
		"Subject: " + message.Subject,
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=\"" + writer.Boundary() + "\"",
		"",
		"",
	}, "\r\n")

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=\"UTF-8\""},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := textPart.Write([]byte(message.Body)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if message.Attachment.Filename != "" {
		attachmentPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {message.Attachment.MimeType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {"attachment; filename=\"" + message.Attachment.Filename + "\""},
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		encoded := base64.StdEncoding.EncodeToString(message.Attachment.Bytes)
		if _, err := attachmentPart.Write([]byte(encoded)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return append([]byte(headers), buf.Bytes()...), nil
}

func (s *SenderService) sendEmail(to []string, msg []byte) error {
	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write(msg); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("credential email sent", "to", to)
	return nil
}
