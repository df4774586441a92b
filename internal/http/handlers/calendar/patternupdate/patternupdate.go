// Package patternupdate реализует HTTP-обработчик замены недельного шаблона
// рабочих дней сервисного календаря.
//
// Handler принимает JSON-запрос со списком дней недели, валидирует его и
// заменяет шаблон целиком через сервис бизнес-логики.
package patternupdate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/response"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// Handler управляет HTTP-запросами на замену недельного шаблона.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики замены шаблона.
type Service interface {
	UpdatePattern(ctx context.Context, req models.DummyServicePattern) error
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
// @Summary Заменить недельный шаблон рабочих дней
// @Description Заменяет шаблон целиком. Кешированная копия шаблона сбрасывается.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param request body models.DummyServicePattern true "Новый недельный шаблон"
// @Success 200 {object} response.OKResponse "Шаблон заменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /calendar/pattern [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.patternupdate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyServicePattern
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

	if err := h.service.UpdatePattern(r.Context(), req); err != nil {
		log.Error("failed to update service pattern", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update service pattern"))
		return
	}

	log.Info("service pattern updated", slog.Any("weekdays", req.Weekdays))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"weekdays": req.Weekdays,
	}))
}
