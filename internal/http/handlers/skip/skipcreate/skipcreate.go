// Package skipcreate реализует HTTP-обработчик регистрации отказа клиента
// от питания на конкретную дату. Вызывается клиентским ботом; повторный
// отказ на ту же дату не является ошибкой.
package skipcreate

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

// Handler управляет HTTP-запросами на регистрацию отказов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики регистрации отказа.
type Service interface {
	CreateSkip(ctx context.Context, req models.DummySkip) error
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
// @Summary Зарегистрировать отказ от питания
// @Description Записывает отказ клиента от питания на дату. Идемпотентно: повторный отказ не является ошибкой.
// @Tags Skips
// @Accept json
// @Produce json
// @Param request body models.DummySkip true "Данные отказа"
// @Success 200 {object} response.OKResponse "Отказ зарегистрирован"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /skips [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.skip.skipcreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySkip
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

	if err := h.service.CreateSkip(r.Context(), req); err != nil {
		log.Error("failed to create skip", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create skip"))
		return
	}

	log.Info("skip created",
		slog.String("customer_uid", req.CustomerUID),
		slog.String("date", req.Date))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"customer_uid": req.CustomerUID,
		"date":         req.Date,
	}))
}
