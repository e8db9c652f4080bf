// Package services содержит бизнес-логику управления подписками и пользователями:
// CRUD с кешированием, смену статусов, ограничение бесплатного тарифа.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var (
	// ErrLimitReached — превышен лимит активных подписок бесплатного тарифа.
	ErrLimitReached = errors.New("free plan subscription limit reached")
	// ErrPriceRequired — цена не указана и не найдена в каталоге.
	ErrPriceRequired = errors.New("price is required for custom subscription")
	// ErrInvalidInput — некорректные дата, период или часовой пояс.
	ErrInvalidInput = errors.New("invalid input")
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	GetSubscription(ctx context.Context, userID int64, id int) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	DeleteSubscription(ctx context.Context, userID int64, id int) error
	SetStatus(ctx context.Context, userID int64, id int, status models.Status) error
	ListActiveSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
	ListAllSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
	CountActiveSubscriptions(ctx context.Context, userID int64) (int, error)
}

// UserRepository определяет методы для работы с пользователями.
type UserRepository interface {
	GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateNotifySettings(ctx context.Context, id int64, settings models.NotifySettings) error
}

// Repository объединяет хранилища подписок и пользователей.
type Repository interface {
	SubscriptionRepository
	UserRepository
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

// Catalog — справочник сервисов, из которого берутся значения по умолчанию.
type Catalog interface {
	ByID(id string) (catalog.ServiceRecord, bool)
	IncludedServices(serviceID string) []string
}

// Options — настройки сервиса.
type Options struct {
	FreeLimit int
	CacheTTL  time.Duration
}

// SubscriptionService реализует бизнес-логику работы с подписками, включая кеширование.
type SubscriptionService struct {
	repo    Repository
	cache   Cache
	catalog Catalog
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo Repository, cache Cache, c Catalog, opts Options, log *slog.Logger) *SubscriptionService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &SubscriptionService{
		repo:    repo,
		cache:   cache,
		catalog: c,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func cacheKey(id int) string {
	return fmt.Sprintf("subscription:%d", id)
}

// Create создает подписку пользователя, дополняя её данными каталога, и возвращает ID.
func (s *SubscriptionService) Create(ctx context.Context, userID int64, req models.DummySubscription) (int, error) {
	const op = "services.subscription.Create"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	sub, err := s.build(models.Subscription{UserID: userID}, req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkLimit(ctx, userID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	sub.ID = id
	log.Info("created new subscription", slog.Int("id", id))

	if err := s.cache.Set(ctx, cacheKey(id), sub, s.opts.CacheTTL); err != nil {
		log.Warn("failed to cache subscription", slog.String("key", cacheKey(id)), sl.Err(err))
	}
	return id, nil
}

func (s *SubscriptionService) checkLimit(ctx context.Context, userID int64) error {
	if s.opts.FreeLimit <= 0 {
		return nil
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPremium(s.now()) {
		return nil
	}
	count, err := s.repo.CountActiveSubscriptions(ctx, userID)
	if err != nil {
		return err
	}
	if count >= s.opts.FreeLimit {
		return ErrLimitReached
	}
	return nil
}

// build накладывает запрос на base: разбирает даты и период, подставляет
// данные каталога и пересчитывает дату следующего списания.
func (s *SubscriptionService) build(base models.Subscription, req models.DummySubscription) (models.Subscription, error) {
	sub := base
	sub.ServiceID = strings.TrimSpace(req.ServiceID)
	sub.Name = strings.TrimSpace(req.Name)
	sub.Category = req.Category
	sub.Currency = req.Currency
	sub.Notes = req.Notes
	sub.IncludedServices = req.IncludedServices

	cycle, ok := models.ParseBillingCycle(req.BillingCycle)
	if !ok {
		return sub, fmt.Errorf("%w: unknown billing cycle %q", ErrInvalidInput, req.BillingCycle)
	}
	sub.BillingCycle = cycle

	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return sub, fmt.Errorf("%w: start date: %v", ErrInvalidInput, err)
	}
	sub.StartDate = start

	sub.TrialEndDate = nil
	sub.IsTrial = false
	if req.TrialEndDate != "" {
		trialEnd, err := time.Parse(models.DateLayout, req.TrialEndDate)
		if err != nil {
			return sub, fmt.Errorf("%w: trial end date: %v", ErrInvalidInput, err)
		}
		sub.TrialEndDate = &trialEnd
		sub.IsTrial = true
	}

	if rec, ok := s.catalog.ByID(sub.ServiceID); ok {
		if sub.Name == "" {
			sub.Name = rec.Name
		}
		if sub.Category == "" {
			sub.Category = rec.Category
		}
		if len(sub.IncludedServices) == 0 {
			sub.IncludedServices = s.catalog.IncludedServices(rec.ID)
		}
		if req.Price == nil {
			p := rec.DefaultPrice
			req.Price = &p
		}
	}
	if req.Price == nil {
		return sub, ErrPriceRequired
	}
	sub.Price = *req.Price
	if sub.Name == "" {
		return sub, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if sub.Category == "" {
		sub.Category = models.DefaultCategory
	}
	if sub.Currency == "" {
		sub.Currency = models.DefaultCurrency
	}

	switch {
	case sub.IsTrial:
		sub.NextBillingDate = billing.Date(*sub.TrialEndDate)
	default:
		sub.NextBillingDate = billing.NextBilling(start, cycle, s.now())
	}

	if sub.Status == "" || sub.Status == models.StatusTrial || sub.Status == models.StatusActive {
		sub.Status = models.StatusActive
		if sub.IsTrial {
			sub.Status = models.StatusTrial
		}
	}
	return sub, nil
}

// Get возвращает подписку пользователя, используя кеш или репозиторий.
func (s *SubscriptionService) Get(ctx context.Context, userID int64, id int) (*models.Subscription, error) {
	const op = "services.subscription.Get"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	var cached models.Subscription
	found, err := s.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		log.Warn("failed to read cache", sl.Err(err))
	}
	if found && cached.UserID == userID {
		return &cached, nil
	}

	sub, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, cacheKey(id), sub, s.opts.CacheTTL); err != nil {
		log.Warn("failed to add to cache", slog.String("key", cacheKey(id)), sl.Err(err))
	}
	return sub, nil
}

// Update перезаписывает подписку данными запроса и обновляет кеш.
func (s *SubscriptionService) Update(ctx context.Context, userID int64, id int, req models.DummySubscription) (*models.Subscription, error) {
	const op = "services.subscription.Update"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	current, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.build(*current, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("updated subscription", slog.Int("id", id))

	if err := s.cache.Set(ctx, cacheKey(id), sub, s.opts.CacheTTL); err != nil {
		log.Warn("failed to cache subscription", slog.String("key", cacheKey(id)), sl.Err(err))
	}
	return &sub, nil
}

// Delete удаляет подписку и инвалидирует кеш.
func (s *SubscriptionService) Delete(ctx context.Context, userID int64, id int) error {
	const op = "services.subscription.Delete"
	s.invalidate(ctx, op, id)
	if err := s.repo.DeleteSubscription(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Pause приостанавливает подписку.
func (s *SubscriptionService) Pause(ctx context.Context, userID int64, id int) error {
	return s.setStatus(ctx, "services.subscription.Pause", userID, id, models.StatusPaused)
}

// Resume возобновляет подписку.
func (s *SubscriptionService) Resume(ctx context.Context, userID int64, id int) error {
	return s.setStatus(ctx, "services.subscription.Resume", userID, id, models.StatusActive)
}

// Cancel отменяет подписку без удаления истории.
func (s *SubscriptionService) Cancel(ctx context.Context, userID int64, id int) error {
	return s.setStatus(ctx, "services.subscription.Cancel", userID, id, models.StatusCancelled)
}

func (s *SubscriptionService) setStatus(ctx context.Context, op string, userID int64, id int, status models.Status) error {
	s.invalidate(ctx, op, id)
	if err := s.repo.SetStatus(ctx, userID, id, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription status changed", slog.String("op", op), sl.UserID(userID),
		slog.Int("id", id), slog.String("status", string(status)))
	return nil
}

// ConvertTrial переводит пробную подписку в платную.
func (s *SubscriptionService) ConvertTrial(ctx context.Context, userID int64, id int) (*models.Subscription, error) {
	const op = "services.subscription.ConvertTrial"

	sub, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.IsTrial = false
	sub.TrialEndDate = nil
	sub.Status = models.StatusActive
	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, id)
	return sub, nil
}

func (s *SubscriptionService) invalidate(ctx context.Context, op string, id int) {
	if err := s.cache.Invalidate(ctx, cacheKey(id)); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("op", op),
			slog.String("key", cacheKey(id)), sl.Err(err))
	}
}

// List возвращает подписки пользователя; отменённые возвращаются только при withCancelled.
func (s *SubscriptionService) List(ctx context.Context, userID int64, withCancelled bool) ([]models.Subscription, error) {
	const op = "services.subscription.List"
	var (
		subs []models.Subscription
		err  error
	)
	if withCancelled {
		subs, err = s.repo.ListAllSubscriptions(ctx, userID)
	} else {
		subs, err = s.repo.ListActiveSubscriptions(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// RegisterUser возвращает пользователя, создавая его при первом обращении.
func (s *SubscriptionService) RegisterUser(ctx context.Context, id int64, username, firstName string) (*models.User, error) {
	const op = "services.subscription.RegisterUser"
	user, err := s.repo.GetOrCreateUser(ctx, id, username, firstName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetUser возвращает пользователя.
func (s *SubscriptionService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "services.subscription.GetUser"
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateNotifySettings сохраняет настройки уведомлений после проверки часового пояса.
func (s *SubscriptionService) UpdateNotifySettings(ctx context.Context, id int64, settings models.NotifySettings) error {
	const op = "services.subscription.UpdateNotifySettings"
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("%s: %w: timezone %q", op, ErrInvalidInput, settings.Timezone)
	}
	if err := s.repo.UpdateNotifySettings(ctx, id, settings); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
