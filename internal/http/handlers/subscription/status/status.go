// Package status реализует HTTP-обработчики смены статуса подписки:
// пауза, возобновление, отмена и перевод пробного периода в платный.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

// Action — действие над подпиской.
type Action string

const (
	Pause   Action = "pause"
	Resume  Action = "resume"
	Cancel  Action = "cancel"
	Convert Action = "convert"
)

// Service описывает операции смены статуса.
type Service interface {
	Pause(ctx context.Context, userID int64, id int) error
	Resume(ctx context.Context, userID int64, id int) error
	Cancel(ctx context.Context, userID int64, id int) error
	ConvertTrial(ctx context.Context, userID int64, id int) (*models.Subscription, error)
}

// Handler выполняет одно действие над подпиской.
type Handler struct {
	log     *slog.Logger
	service Service
	action  Action
}

// New создаёт Handler для действия action.
func New(log *slog.Logger, service Service, action Action) *Handler {
	return &Handler{
		log:     log,
		service: service,
		action:  action,
	}
}

func (h *Handler) apply(ctx context.Context, userID int64, id int) error {
	switch h.action {
	case Pause:
		return h.service.Pause(ctx, userID, id)
	case Resume:
		return h.service.Resume(ctx, userID, id)
	case Cancel:
		return h.service.Cancel(ctx, userID, id)
	case Convert:
		_, err := h.service.ConvertTrial(ctx, userID, id)
		return err
	default:
		return fmt.Errorf("unknown action %q", h.action)
	}
}

// ServeHTTP godoc
// @Summary Сменить статус подписки
// @Description pause и resume управляют паузой, cancel отменяет подписку с сохранением истории, convert переводит триал в платную подписку.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID подписки"
// @Param action path string true "Действие" Enums(pause, resume, cancel, convert)
// @Success 200 {object} map[string]any "Статус изменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/{id}/{action} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("action", string(h.action)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	err = h.apply(r.Context(), userID, id)
	if errors.Is(err, storage.ErrSubscriptionNotFound) {
		log.Info("subscription not found", slog.Int("id", id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}
	if err != nil {
		log.Error("failed to change subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change subscription status"))
		return
	}

	log.Info("subscription status changed", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":     id,
		"action": h.action,
	}))
}
