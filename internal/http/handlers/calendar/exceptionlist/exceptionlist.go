// Package exceptionlist реализует HTTP-обработчик списка исключений
// сервисного календаря с пагинацией.
package exceptionlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/response"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// Handler управляет HTTP-запросами на чтение списка исключений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка исключений.
type Service interface {
	ListExceptions(ctx context.Context, limit, offset int) ([]*models.ServiceException, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// exceptionItem — представление исключения в JSON-ответе.
type exceptionItem struct {
	ID             int    `json:"id"`
	Date           string `json:"date"`
	Kind           string `json:"kind"`
	IsServiceDay   bool   `json:"is_service_day"`
	Recurrence     string `json:"recurrence"`
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

// ServeHTTP godoc
// @Summary Получить список исключений календаря
// @Description Возвращает исключения календаря с пагинацией через limit и offset.
// @Tags Calendar
// @Produce json
// @Param limit query int false "Количество записей" default(10)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.OKResponse "Список исключений"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /calendar/exceptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.exceptionlist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	offsetStr := r.URL.Query().Get("offset")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	exceptions, err := h.service.ListExceptions(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list exceptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list exceptions"))
		return
	}

	items := make([]exceptionItem, 0, len(exceptions))
	for _, exc := range exceptions {
		items = append(items, exceptionItem{
			ID:             exc.ID,
			Date:           exc.Date.Format(models.DateLayout),
			Kind:           exc.Kind,
			IsServiceDay:   exc.IsServiceDay,
			Recurrence:     exc.Recurrence,
			RecurrenceRule: exc.RecurrenceRule,
		})
	}

	log.Info("list exceptions", slog.Int("count", len(items)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(items),
		"exceptions": items,
	}))
}
