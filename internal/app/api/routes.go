// Package api предоставляет HTTP-приложение административной поверхности:
// календарь, отказы, ручной запуск выдачи, здоровье, метрики.
package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/calendar/exceptioncreate"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/calendar/exceptionlist"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/calendar/exceptionremove"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/calendar/patternget"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/calendar/patternupdate"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/health"
	issuancerun "github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/issuance/run"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/handlers/skip/skipcreate"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/http/middlewarectx"
	issuanceservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/issuance"
	scheduleservice "github.com/magabrotheeeer/meal-credential-issuer/internal/services/schedule"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	scheduleService *scheduleservice.Service,
	issuanceService *issuanceservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Клиентский бот: регистрация отказа от питания
		r.Post("/skips", skipcreate.New(logger, scheduleService).ServeHTTP)

		// Административная группа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/calendar/pattern", patternget.New(logger, scheduleService).ServeHTTP)
			r.Put("/calendar/pattern", patternupdate.New(logger, scheduleService).ServeHTTP)
			r.Post("/calendar/exceptions", exceptioncreate.New(logger, scheduleService).ServeHTTP)
			r.Get("/calendar/exceptions", exceptionlist.New(logger, scheduleService).ServeHTTP)
			r.Delete("/calendar/exceptions/{id}", exceptionremove.New(logger, scheduleService).ServeHTTP)
			r.Post("/issuance/run", issuancerun.New(logger, issuanceService).ServeHTTP)
		})

		r.Get("/health", health.New(logger).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
