// Package exceptionremove реализует HTTP-обработчик удаления исключения
// сервисного календаря по ID.
package exceptionremove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/response"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/repository"
)

// Handler управляет HTTP-запросами на удаление исключений календаря.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления исключения.
type Service interface {
	RemoveException(ctx context.Context, id int) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить исключение календаря
// @Description Удаляет исключение по ID.
// @Tags Calendar
// @Produce json
// @Param id path int true "ID исключения"
// @Success 200 {object} response.OKResponse "Исключение удалено"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Исключение не найдено"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /calendar/exceptions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.exceptionremove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		log.Error("invalid id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.RemoveException(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Error("exception not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("exception not found"))
			return
		}
		log.Error("failed to remove exception", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove exception"))
		return
	}

	log.Info("exception removed", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"removed_id": id,
	}))
}
