// Package patternget реализует HTTP-обработчик чтения недельного шаблона
// рабочих дней сервисного календаря.
package patternget

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/response"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// Handler управляет HTTP-запросами на чтение недельного шаблона.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения шаблона.
type Service interface {
	GetPattern(ctx context.Context) (*models.ServicePattern, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить недельный шаблон рабочих дней
// @Description Возвращает список дней недели (0-6, воскресенье = 0), в которые выполняется выдача талонов.
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.OKResponse "Недельный шаблон"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /calendar/pattern [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.patternget"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	pattern, err := h.service.GetPattern(r.Context())
	if err != nil {
		log.Error("failed to read service pattern", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read service pattern"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"weekdays": pattern.Weekdays,
	}))
}
