// Package scheduler содержит периодические задачи трекера: перенос дат
// списания, поиск заканчивающихся триалов и напоминания о списаниях.
// Уведомления публикуются в RabbitMQ и доставляются сервисом sender.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/rabbitmq"
)

// Repository — методы хранилища, нужные планировщику.
type Repository interface {
	FindDueForRollforward(ctx context.Context, today time.Time) ([]models.Subscription, error)
	UpdateNextBillingDate(ctx context.Context, id int, next time.Time) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	FindUpcomingBillings(ctx context.Context, userID int64, today time.Time, days int) ([]models.Subscription, error)
}

// TrialSource отдаёт критичные триалы пользователя.
type TrialSource interface {
	CriticalTrials(ctx context.Context, userID int64) ([]models.TrialAlert, error)
}

// Intervals — периоды запуска задач.
type Intervals struct {
	Rollforward time.Duration
	Trials      time.Duration
	Reminders   time.Duration
}

// SchedulerService выполняет периодические задачи.
type SchedulerService struct {
	repo    Repository
	trials  TrialSource
	pub     rabbitmq.Publisher
	pubMu   sync.Mutex
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo Repository, trials TrialSource, pub rabbitmq.Publisher, m *metrics.Metrics, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:    repo,
		trials:  trials,
		pub:     pub,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Run запускает задачи по расписанию и блокируется до отмены ctx.
// Каждая задача выполняется сразу при старте, затем раз в свой интервал.
func (s *SchedulerService) Run(ctx context.Context, iv Intervals) {
	var wg sync.WaitGroup
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) (int, error)
	}{
		{"rollforward", iv.Rollforward, s.Rollforward},
		{"trials", iv.Trials, s.NotifyTrials},
		{"reminders", iv.Reminders, s.NotifyBillings},
	}
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, j.name, j.interval, j.fn)
		}()
	}
	wg.Wait()
}

func (s *SchedulerService) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) (int, error)) {
	log := s.log.With(slog.String("job", name))
	run := func() {
		n, err := fn(ctx)
		if err != nil {
			log.Error("job failed", sl.Err(err))
			return
		}
		log.Info("job finished", slog.Int("processed", n))
	}

	run()
	if interval <= 0 {
		log.Warn("job interval is not positive, periodic runs disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// Rollforward переносит прошедшие даты списания на следующий период
// и возвращает число обновлённых подписок.
func (s *SchedulerService) Rollforward(ctx context.Context) (int, error) {
	const op = "services.scheduler.Rollforward"
	today := billing.Date(s.now())

	subs, err := s.repo.FindDueForRollforward(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	updated := 0
	for _, sub := range subs {
		next := billing.NextBilling(sub.NextBillingDate, sub.BillingCycle, today)
		if !next.After(sub.NextBillingDate) {
			continue
		}
		if err := s.repo.UpdateNextBillingDate(ctx, sub.ID, next); err != nil {
			s.log.Error("failed to update next billing date", slog.String("op", op),
				slog.Int("id", sub.ID), sl.Err(err))
			continue
		}
		updated++
	}
	s.metrics.Rollforward(updated)
	return updated, nil
}

// NotifyTrials публикует уведомления о триалах, которые заканчиваются в ближайшие дни.
func (s *SchedulerService) NotifyTrials(ctx context.Context) (int, error) {
	const op = "services.scheduler.NotifyTrials"

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		alerts, err := s.trials.CriticalTrials(ctx, u.ID)
		if err != nil {
			s.log.Error("failed to load trials", slog.String("op", op), sl.UserID(u.ID), sl.Err(err))
			continue
		}
		for _, a := range alerts {
			if s.publish(models.NotificationTrial, rabbitmq.RoutingKeyTrial, u.ID, a.Message) == nil {
				sent++
			}
		}
	}
	return sent, nil
}

// NotifyBillings публикует напоминания о списаниях в окне notify_before_days пользователя.
func (s *SchedulerService) NotifyBillings(ctx context.Context) (int, error) {
	const op = "services.scheduler.NotifyBillings"
	today := billing.Date(s.now())

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if u.NotifyBeforeDays <= 0 {
			continue
		}
		subs, err := s.repo.FindUpcomingBillings(ctx, u.ID, today, u.NotifyBeforeDays)
		if err != nil {
			s.log.Error("failed to load upcoming billings", slog.String("op", op), sl.UserID(u.ID), sl.Err(err))
			continue
		}
		for _, sub := range subs {
			days := billing.DaysBetween(today, sub.NextBillingDate)
			if s.publish(models.NotificationBilling, rabbitmq.RoutingKeyBilling, u.ID, BillingReminderText(sub, days)) == nil {
				sent++
			}
		}
	}
	return sent, nil
}

func (s *SchedulerService) publish(kind, routingKey string, userID int64, text string) error {
	msg := models.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now(),
	}

	s.pubMu.Lock()
	err := rabbitmq.PublishMessage(s.pub, rabbitmq.Exchange, routingKey, msg)
	s.pubMu.Unlock()

	s.metrics.Published(kind, err)
	if err != nil {
		s.log.Error("failed to publish message", slog.String("kind", kind), sl.UserID(userID), sl.Err(err))
	}
	return err
}

// BillingReminderText формирует текст напоминания о списании.
func BillingReminderText(sub models.Subscription, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("💳 Сегодня списание за %s: %.0f %s", sub.Name, sub.Price, sub.Currency)
	case 1:
		return fmt.Sprintf("💳 Завтра списание за %s: %.0f %s", sub.Name, sub.Price, sub.Currency)
	default:
		return fmt.Sprintf("💳 Через %d дн. списание за %s: %.0f %s", days, sub.Name, sub.Price, sub.Currency)
	}
}
