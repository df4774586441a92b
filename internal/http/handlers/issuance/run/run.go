// Package run реализует HTTP-обработчик ручного запуска прогона ежедневной
// выдачи. Прогон идемпотентен, поэтому ручной перезапуск после сбоя
// безопасен: уже выданные талоны не перечеканиваются.
package run

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

// Handler управляет HTTP-запросами на ручной запуск выдачи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс оркестратора ежедневной выдачи.
type Service interface {
	RunDailyIssuance(ctx context.Context) (*models.IssuanceResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запустить прогон ежедневной выдачи вручную
// @Description Запускает прогон выдачи на сегодня. Прогон идемпотентен: повторный запуск не создаёт дублей.
// @Tags Issuance
// @Produce json
// @Success 200 {object} response.OKResponse "Итог прогона"
// @Failure 500 {object} response.ErrorResponse "Фатальный сбой прогона"
// @Router /issuance/run [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.issuance.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	log.Info("manual issuance run requested")
	result, err := h.service.RunDailyIssuance(r.Context())
	if err != nil {
		log.Error("issuance run failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("issuance run failed"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
