package sender

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/smtp"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// MockTransport реализует интерфейс smtp.TransportInterface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

// MockClient реализует интерфейс smtp.Client и запоминает отправленное письмо.
type MockClient struct {
	mock.Mock
	sent strings.Builder
}

func (m *MockClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	return &writeCloser{b: &m.sent}, args.Error(1)
}

func (m *MockClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type writeCloser struct {
	b *strings.Builder
}

func (w *writeCloser) Write(p []byte) (int, error) { return w.b.Write(p) }
func (w *writeCloser) Close() error                { return nil }

// MockDedup реализует интерфейс sender.Deduplicator
type MockDedup struct {
	mock.Mock
}

func (m *MockDedup) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func dispatchBody(t *testing.T, key string) []byte {
	t.Helper()
	msg := models.DispatchMessage{
		Recipient: "customer@example.com",
		Subject:   "Талон на питание на 2026-11-24",
		Body:      "Короткий код: ABCD2345",
		Attachment: models.DispatchAttachment{
			Filename: "meal-credential-2026-11-24.txt",
			Bytes:    []byte("signed.jwt.token"),
			MimeType: "text/plain",
		},
		IdempotencyKey: key,
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func newTestSender(transport *MockTransport, dedup *MockDedup) *SenderService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if dedup == nil {
		return NewSenderService(logger, transport, nil)
	}
	return NewSenderService(logger, transport, dedup)
}

func TestSendCredentialEmail_Success(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockClient)
	dedup := new(MockDedup)

	dedup.On("SetNX", mock.Anything, "dispatch:sent:daily-credential/c1/2026-11-24",
		mock.Anything, dedupTTL).Return(true, nil)
	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(client, nil)
	client.On("Mail", "noreply@example.com").Return(nil)
	client.On("Rcpt", "customer@example.com").Return(nil)
	client.On("Data").Return(nil, nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	svc := newTestSender(transport, dedup)
	err := svc.SendCredentialEmail(dispatchBody(t, "daily-credential/c1/2026-11-24"))

	require.NoError(t, err)
	raw := client.sent.String()
	assert.Contains(t, raw, "To: customer@example.com")
	assert.Contains(t, raw, "Content-Type: multipart/mixed")
	assert.Contains(t, raw, `filename="meal-credential-2026-11-24.txt"`)
	assert.Contains(t, raw, "Content-Transfer-Encoding: base64")
	transport.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestSendCredentialEmail_DuplicateSuppressed(t *testing.T) {
	transport := new(MockTransport)
	dedup := new(MockDedup)

	dedup.On("SetNX", mock.Anything, mock.Anything, mock.Anything, dedupTTL).Return(false, nil)

	svc := newTestSender(transport, dedup)
	err := svc.SendCredentialEmail(dispatchBody(t, "daily-credential/c1/2026-11-24"))

	require.NoError(t, err)
	// Повторная доставка того же сообщения не должна дойти до SMTP.
	transport.AssertNotCalled(t, "Connect")
}

func TestSendCredentialEmail_DedupStoreDownSendsAnyway(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockClient)
	dedup := new(MockDedup)

	dedup.On("SetNX", mock.Anything, mock.Anything, mock.Anything, dedupTTL).
		Return(false, errors.New("redis down"))
	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(client, nil)
	client.On("Mail", mock.Anything).Return(nil)
	client.On("Rcpt", mock.Anything).Return(nil)
	client.On("Data").Return(nil, nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	svc := newTestSender(transport, dedup)
	err := svc.SendCredentialEmail(dispatchBody(t, "daily-credential/c1/2026-11-24"))

	require.NoError(t, err)
	transport.AssertCalled(t, "Connect")
}

func TestSendCredentialEmail_BadPayload(t *testing.T) {
	svc := newTestSender(new(MockTransport), new(MockDedup))
	err := svc.SendCredentialEmail([]byte("not a json"))
	require.Error(t, err)
}

func TestSendCredentialEmail_ConnectFailure(t *testing.T) {
	transport := new(MockTransport)
	dedup := new(MockDedup)

	dedup.On("SetNX", mock.Anything, mock.Anything, mock.Anything, dedupTTL).Return(true, nil)
	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(nil, errors.New("connection refused"))

	svc := newTestSender(transport, dedup)
	err := svc.SendCredentialEmail(dispatchBody(t, "daily-credential/c1/2026-11-24"))

	require.Error(t, err)
}
