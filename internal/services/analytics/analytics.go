// Package analytics содержит точку входа в аналитику для HTTP API, бота и планировщика.
// Каждый вызов один раз читает подписки пользователя из хранилища и дальше
// работает только с этим снимком; сервис не хранит состояния между вызовами.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/overlap"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/report"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/tips"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/trials"
)

// SummaryLookaheadDays — окно, в котором триалы попадают в сводку.
const SummaryLookaheadDays = 30

// Store — контракт хранилища, который нужен аналитике.
type Store interface {
	// ListActiveSubscriptions возвращает подписки пользователя кроме отменённых.
	ListActiveSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
	// ListAllSubscriptions возвращает все подписки, включая отменённые.
	ListAllSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
}

// Catalog объединяет данные каталога, нужные детектору, советам и отчёту.
type Catalog interface {
	overlap.Catalog
	tips.Catalog
}

// Config — настраиваемые константы аналитики.
type Config struct {
	Tips      tips.Thresholds
	Reference report.Reference
}

// Service — фасад аналитики.
type Service struct {
	store    Store
	detector *overlap.Detector
	tips     *tips.Engine
	report   *report.Aggregator
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт сервис аналитики.
func New(store Store, c Catalog, cfg Config, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		detector: overlap.NewDetector(c),
		tips:     tips.NewEngine(cfg.Tips, c),
		report:   report.NewAggregator(c, cfg.Reference),
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) today() time.Time {
	return billing.Date(s.now())
}

func (s *Service) load(ctx context.Context, op string, userID int64) ([]models.Subscription, error) {
	subs, err := s.store.ListActiveSubscriptions(ctx, userID)
	s.metrics.AnalyticsRequest(op, err)
	if err != nil {
		s.log.Error("failed to list subscriptions", slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// DetectOverlaps возвращает пересечения подписок пользователя.
func (s *Service) DetectOverlaps(ctx context.Context, userID int64) ([]models.OverlapAlert, error) {
	const op = "analytics.DetectOverlaps"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	alerts := s.detector.Detect(subs)
	for _, a := range alerts {
		s.metrics.OverlapAlert(string(a.OverlapType))
	}
	s.metrics.PotentialSavings(overlap.TotalPotentialSavings(alerts))
	return alerts, nil
}

// TotalPotentialSavings возвращает экономию по всем пересечениям без двойного учёта.
func (s *Service) TotalPotentialSavings(ctx context.Context, userID int64) (float64, error) {
	alerts, err := s.DetectOverlaps(ctx, userID)
	if err != nil {
		return 0, err
	}
	return overlap.TotalPotentialSavings(alerts), nil
}

// GenerateTips возвращает советы по оптимизации.
func (s *Service) GenerateTips(ctx context.Context, userID int64) ([]models.Tip, error) {
	const op = "analytics.GenerateTips"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return s.tips.Generate(subs, s.today()), nil
}

// BuildReport строит полный отчёт вместе с советами.
func (s *Service) BuildReport(ctx context.Context, userID int64) (models.AnalyticsReport, error) {
	const op = "analytics.BuildReport"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return models.AnalyticsReport{}, err
	}
	today := s.today()
	rep := s.report.Build(subs, today)
	rep.Tips = s.tips.Generate(subs, today)
	return rep, nil
}

// TrialAlerts возвращает триалы, заканчивающиеся в ближайшие lookaheadDays дней.
func (s *Service) TrialAlerts(ctx context.Context, userID int64, lookaheadDays int) ([]models.TrialAlert, error) {
	const op = "analytics.TrialAlerts"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return trials.Alerts(subs, s.today(), lookaheadDays), nil
}

// CriticalTrials возвращает триалы для push-уведомлений.
func (s *Service) CriticalTrials(ctx context.Context, userID int64) ([]models.TrialAlert, error) {
	const op = "analytics.CriticalTrials"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return trials.Critical(subs, s.today()), nil
}

// TrialsSummary возвращает сводку по триалам за SummaryLookaheadDays дней.
func (s *Service) TrialsSummary(ctx context.Context, userID int64) (models.TrialsSummary, error) {
	const op = "analytics.TrialsSummary"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return models.TrialsSummary{}, err
	}
	return trials.Summarize(trials.Alerts(subs, s.today(), SummaryLookaheadDays)), nil
}

// Forecast возвращает прогноз трат при текущем уровне подписок.
func (s *Service) Forecast(ctx context.Context, userID int64) (models.SpendingForecast, error) {
	const op = "analytics.Forecast"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return models.SpendingForecast{}, err
	}
	return report.Forecast(s.report.Build(subs, s.today()).TotalMonthly), nil
}

// Comparison сравнивает траты пользователя со средними.
func (s *Service) Comparison(ctx context.Context, userID int64) (models.ComparisonStats, error) {
	const op = "analytics.Comparison"
	subs, err := s.load(ctx, op, userID)
	if err != nil {
		return models.ComparisonStats{}, err
	}
	return s.report.Build(subs, s.today()).Comparison, nil
}

// History возвращает все подписки пользователя, включая отменённые, для экспорта.
func (s *Service) History(ctx context.Context, userID int64) ([]models.Subscription, error) {
	const op = "analytics.History"
	subs, err := s.store.ListAllSubscriptions(ctx, userID)
	s.metrics.AnalyticsRequest(op, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}
