package skipcreate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// MockService реализует интерфейс skipcreate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateSkip(ctx context.Context, req models.DummySkip) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func TestSkipCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация отказа",
			requestBody: models.DummySkip{
				CustomerUID: "c1",
				Date:        "2026-11-24",
			},
			setupMock: func(m *MockService) {
				m.On("CreateSkip", mock.Anything, mock.AnythingOfType("models.DummySkip")).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"customer_uid":"c1","date":"2026-11-24"}}`,
		},
		{
			name: "невалидная дата",
			requestBody: models.DummySkip{
				CustomerUID: "c1",
				Date:        "24.11.2026",
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Date can contain only date in format 2006-01-02"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка сервиса",
			requestBody: models.DummySkip{
				CustomerUID: "c1",
				Date:        "2026-11-24",
			},
			setupMock: func(m *MockService) {
				m.On("CreateSkip", mock.Anything, mock.AnythingOfType("models.DummySkip")).
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not create skip"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/skips", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
