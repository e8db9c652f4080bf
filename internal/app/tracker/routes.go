// Package tracker собирает HTTP API трекера подписок: маршруты, middleware и сервер.
package tracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	analyticshandlers "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/analytics"
	cataloghandlers "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/settings"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	analyticsservice "github.com/magabrotheeeer/subscription-tracker/internal/services/analytics"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
)

// Deps — зависимости, из которых строятся маршруты.
type Deps struct {
	Logger        *slog.Logger
	Subscriptions *subservice.SubscriptionService
	Analytics     *analyticsservice.Service
	Catalog       cataloghandlers.Index
	Health        health.Checker
	Tokens        middlewarectx.TokenParser
	Limiter       *middlewarectx.Limiter
	Metrics       *metrics.Metrics
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Logger

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware(d.Metrics),
	)

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытый справочник
		catalogHandler := cataloghandlers.New(logger, d.Catalog)
		r.Get("/catalog", catalogHandler.Search)
		r.Get("/catalog/categories", catalogHandler.Categories)
		r.Get("/catalog/{id}", catalogHandler.Service)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Limiter, logger))

			r.Post("/subscriptions", create.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}", read.New(logger, d.Subscriptions).ServeHTTP)
			r.Put("/subscriptions/{id}", update.New(logger, d.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", remove.New(logger, d.Subscriptions).ServeHTTP)
			for _, action := range []status.Action{status.Pause, status.Resume, status.Cancel, status.Convert} {
				r.Post("/subscriptions/{id}/"+string(action), status.New(logger, d.Subscriptions, action).ServeHTTP)
			}

			analytics := analyticshandlers.New(logger, d.Analytics)
			r.Get("/analytics/overlaps", analytics.Overlaps)
			r.Get("/analytics/tips", analytics.Tips)
			r.Get("/analytics/report", analytics.Report)
			r.Get("/analytics/trials", analytics.Trials)
			r.Get("/analytics/trials/summary", analytics.TrialsSummary)
			r.Get("/analytics/forecast", analytics.Forecast)
			r.Get("/analytics/comparison", analytics.Comparison)
			r.Get("/analytics/history", analytics.History)

			userSettings := settings.New(logger, d.Subscriptions)
			r.Get("/settings", userSettings.Get)
			r.Put("/settings", userSettings.Update)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
