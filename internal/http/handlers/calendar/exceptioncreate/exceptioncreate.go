// Package exceptioncreate реализует HTTP-обработчик создания исключения
// сервисного календаря: праздника или специального события, разового либо
// повторяющегося.
package exceptioncreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/response"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/services/schedule"
)

// Handler управляет HTTP-запросами на создание исключений календаря.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания исключения.
type Service interface {
	CreateException(ctx context.Context, req models.DummyServiceException) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать исключение календаря
// @Description Создает праздник или специальное событие. Возвращает ID созданной записи.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param request body models.DummyServiceException true "Данные исключения"
// @Success 200 {object} response.OKResponse "Успешное создание исключения"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Исключение этого вида на дату уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /calendar/exceptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.exceptioncreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyServiceException
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.CreateException(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidRule):
			log.Error("invalid recurrence rule", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("invalid recurrence rule"))
		case errors.Is(err, schedule.ErrDuplicateException):
			log.Error("duplicate exception", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("exception of this kind already exists for the date"))
		default:
			log.Error("failed to create exception", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create exception"))
		}
		return
	}

	log.Info("exception created", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"last_added_id": id,
	}))
}
