// Package analytics реализует HTTP-обработчики аналитики: пересечения,
// советы, отчёт, триалы, прогноз, сравнение и историю подписок.
//
// Все обработчики только читают данные и работают от имени пользователя из JWT.
package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/overlap"
)

const (
	// DefaultTrialLookahead — окно поиска триалов, если lookahead не указан.
	DefaultTrialLookahead = 7
	maxTrialLookahead     = 365
)

// Service описывает фасад аналитики.
type Service interface {
	DetectOverlaps(ctx context.Context, userID int64) ([]models.OverlapAlert, error)
	GenerateTips(ctx context.Context, userID int64) ([]models.Tip, error)
	BuildReport(ctx context.Context, userID int64) (models.AnalyticsReport, error)
	TrialAlerts(ctx context.Context, userID int64, lookaheadDays int) ([]models.TrialAlert, error)
	TrialsSummary(ctx context.Context, userID int64) (models.TrialsSummary, error)
	Forecast(ctx context.Context, userID int64) (models.SpendingForecast, error)
	Comparison(ctx context.Context, userID int64) (models.ComparisonStats, error)
	History(ctx context.Context, userID int64) ([]models.Subscription, error)
}

// Handler группирует обработчики аналитики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// serve выполняет общую часть: пользователь из контекста, вызов fn, JSON-ответ.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, userID int64) (map[string]any, error)) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	data, err := fn(r.Context(), userID)
	if err != nil {
		log.Error("analytics request failed", sl.Err(err), sl.UserID(userID))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build analytics"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}

// Overlaps godoc
// @Summary Пересечения подписок
// @Description Находит подписки, которые дублируют друг друга, и суммарную возможную экономию.
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список пересечений"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/overlaps [get]
func (h *Handler) Overlaps(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.overlaps", func(ctx context.Context, userID int64) (map[string]any, error) {
		alerts, err := h.service.DetectOverlaps(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"overlaps":                alerts,
			"total_potential_savings": overlap.TotalPotentialSavings(alerts),
		}, nil
	})
}

// Tips godoc
// @Summary Советы по экономии
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список советов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/tips [get]
func (h *Handler) Tips(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.tips", func(ctx context.Context, userID int64) (map[string]any, error) {
		tips, err := h.service.GenerateTips(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tips": tips}, nil
	})
}

// Report godoc
// @Summary Аналитический отчёт
// @Description Траты по категориям, ближайшее списание, сравнение и советы.
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Отчёт"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.report", func(ctx context.Context, userID int64) (map[string]any, error) {
		rep, err := h.service.BuildReport(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"report": rep}, nil
	})
}

// Trials godoc
// @Summary Заканчивающиеся пробные периоды
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Param lookahead query int false "Окно в днях (по умолчанию 7)"
// @Success 200 {object} map[string]any "Список триалов"
// @Failure 400 {object} response.ErrorResponse "Некорректный lookahead"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/trials [get]
func (h *Handler) Trials(w http.ResponseWriter, r *http.Request) {
	lookahead := DefaultTrialLookahead
	if raw := r.URL.Query().Get("lookahead"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > maxTrialLookahead {
			h.log.Error("invalid lookahead", slog.String("lookahead", raw))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("lookahead must be an integer between 0 and 365"))
			return
		}
		lookahead = v
	}

	h.serve(w, r, "handlers.analytics.trials", func(ctx context.Context, userID int64) (map[string]any, error) {
		alerts, err := h.service.TrialAlerts(ctx, userID, lookahead)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"lookahead_days": lookahead,
			"trials":         alerts,
		}, nil
	})
}

// TrialsSummary godoc
// @Summary Сводка по триалам
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Сводка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/trials/summary [get]
func (h *Handler) TrialsSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.trials_summary", func(ctx context.Context, userID int64) (map[string]any, error) {
		summary, err := h.service.TrialsSummary(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"summary": summary}, nil
	})
}

// Forecast godoc
// @Summary Прогноз трат
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Прогноз"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/forecast [get]
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.forecast", func(ctx context.Context, userID int64) (map[string]any, error) {
		f, err := h.service.Forecast(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"forecast": f}, nil
	})
}

// Comparison godoc
// @Summary Сравнение со средним пользователем
// @Description Эталонные значения заданы в конфиге, поэтому результат помечен illustrative.
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Сравнение"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/comparison [get]
func (h *Handler) Comparison(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.comparison", func(ctx context.Context, userID int64) (map[string]any, error) {
		c, err := h.service.Comparison(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"comparison": c}, nil
	})
}

// History godoc
// @Summary История подписок
// @Description Все подписки пользователя, включая отменённые.
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "История"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "handlers.analytics.history", func(ctx context.Context, userID int64) (map[string]any, error) {
		subs, err := h.service.History(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"subscriptions": subs}, nil
	})
}
