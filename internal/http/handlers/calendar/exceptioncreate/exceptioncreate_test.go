package exceptioncreate

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
	"github.com/magabrotheeeer/meal-credential-issuer/internal/services/schedule"
)

// MockService реализует интерфейс exceptioncreate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateException(ctx context.Context, req models.DummyServiceException) (int, error) {
	args := m.Called(ctx, req)
	return args.Int(0), args.Error(1)
}

func TestExceptionCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное создание праздника",
			requestBody: models.DummyServiceException{
				Date:         "2026-05-01",
				Kind:         "holiday",
				IsServiceDay: false,
			},
			setupMock: func(m *MockService) {
				m.On("CreateException", mock.Anything, mock.AnythingOfType("models.DummyServiceException")).
					Return(42, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"last_added_id":42}}`,
		},
		{
			name: "невалидные данные",
			requestBody: models.DummyServiceException{
				Date: "",
				Kind: "",
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Date is a required field, field Kind is a required field"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "нераспознаваемое правило повторения",
			requestBody: models.DummyServiceException{
				Date:           "2026-11-26",
				Kind:           "holiday",
				Recurrence:     "floating",
				RecurrenceRule: "every second full moon",
			},
			setupMock: func(m *MockService) {
				m.On("CreateException", mock.Anything, mock.AnythingOfType("models.DummyServiceException")).
					Return(0, schedule.ErrInvalidRule)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"invalid recurrence rule"}`,
		},
		{
			name: "дубль исключения на дату",
			requestBody: models.DummyServiceException{
				Date:         "2026-05-01",
				Kind:         "holiday",
				IsServiceDay: false,
			},
			setupMock: func(m *MockService) {
				m.On("CreateException", mock.Anything, mock.AnythingOfType("models.DummyServiceException")).
					Return(0, schedule.ErrDuplicateException)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"exception of this kind already exists for the date"}`,
		},
		{
			name: "ошибка сервиса",
			requestBody: models.DummyServiceException{
				Date:         "2026-05-01",
				Kind:         "holiday",
				IsServiceDay: false,
			},
			setupMock: func(m *MockService) {
				m.On("CreateException", mock.Anything, mock.AnythingOfType("models.DummyServiceException")).
					Return(0, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not create exception"}`,
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

			req := httptest.NewRequest(http.MethodPost, "/api/v1/calendar/exceptions", bytes.NewReader(body))
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
