// Package sender доставляет уведомления из очередей RabbitMQ пользователям.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// ErrRecipientUnavailable — получатель не может принять сообщение (например,
// заблокировал бота). Повторная доставка бессмысленна.
var ErrRecipientUnavailable = errors.New("recipient unavailable")

// Notifier отправляет текст пользователю.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// SenderService разбирает конверты уведомлений и отправляет их через Notifier.
type SenderService struct {
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(notifier Notifier, m *metrics.Metrics, log *slog.Logger) *SenderService {
	return &SenderService{
		notifier: notifier,
		metrics:  m,
		log:      log,
	}
}

// Handler возвращает обработчик сообщений очереди.
// Ошибка обработчика приводит к повторной доставке сообщения.
func (s *SenderService) Handler(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		return s.Deliver(ctx, body)
	}
}

// Deliver отправляет одно уведомление. Битые конверты и недоступные
// получатели подтверждаются без ошибки, чтобы не зацикливать очередь.
func (s *SenderService) Deliver(ctx context.Context, body []byte) error {
	const op = "services.sender.Deliver"
	log := s.log.With(slog.String("op", op))

	var msg models.Notification
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		s.metrics.Delivered("malformed", err)
		return nil
	}
	if msg.UserID == 0 || msg.Text == "" {
		log.Error("notification without recipient or text", slog.String("id", msg.ID))
		s.metrics.Delivered("malformed", errors.New("empty notification"))
		return nil
	}
	log = log.With(slog.String("id", msg.ID), slog.String("kind", msg.Kind), sl.UserID(msg.UserID))

	err := s.notifier.Send(ctx, msg.UserID, msg.Text)
	s.metrics.Delivered(msg.Kind, err)
	switch {
	case errors.Is(err, ErrRecipientUnavailable):
		log.Warn("recipient unavailable, dropping notification", sl.Err(err))
		return nil
	case err != nil:
		log.Error("failed to send notification", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("notification delivered")
	return nil
}
