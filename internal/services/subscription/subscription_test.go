package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) GetSubscription(ctx context.Context, userID int64, id int) (*models.Subscription, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *RepoMock) DeleteSubscription(ctx context.Context, userID int64, id int) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *RepoMock) SetStatus(ctx context.Context, userID int64, id int, status models.Status) error {
	return m.Called(ctx, userID, id, status).Error(0)
}

func (m *RepoMock) ListActiveSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *RepoMock) ListAllSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *RepoMock) CountActiveSubscriptions(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error) {
	args := m.Called(ctx, id, username, firstName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) UpdateNotifySettings(ctx context.Context, id int64, settings models.NotifySettings) error {
	return m.Called(ctx, id, settings).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(r *RepoMock, c *CacheMock) *SubscriptionService {
	s := NewSubscriptionService(r, c, catalog.MustDefault(), Options{FreeLimit: 5, CacheTTL: time.Hour}, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func price(p float64) *float64 { return &p }

func TestSubscriptionService_Create(t *testing.T) {
	freeUser := &models.User{ID: 1, PremiumType: models.PremiumFree}
	premiumUser := &models.User{ID: 1, PremiumType: models.PremiumLifetime}

	tests := []struct {
		name       string
		req        models.DummySubscription
		setupMocks func(r *RepoMock, c *CacheMock)
		wantID     int
		wantErr    error
		check      func(t *testing.T, r *RepoMock)
	}{
		{
			name: "подписка из каталога получает имя, категорию и цену по умолчанию",
			req:  models.DummySubscription{ServiceID: "yandex_plus", StartDate: "01-06-2025"},
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("GetUser", mock.Anything, int64(1)).Return(freeUser, nil).Once()
				r.On("CountActiveSubscriptions", mock.Anything, int64(1)).Return(2, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.Name == "Яндекс Плюс" &&
						s.Category == "streaming" &&
						s.Price > 0 &&
						s.Currency == models.DefaultCurrency &&
						s.BillingCycle == models.CycleMonthly &&
						s.Status == models.StatusActive &&
						len(s.IncludedServices) > 0 &&
						s.NextBillingDate.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
				})).Return(42, nil).Once()
				c.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Hour).Return(nil).Once()
			},
			wantID: 42,
		},
		{
			name: "пробный период делает дату окончания первой датой списания",
			req: models.DummySubscription{Name: "Custom", Price: price(100), StartDate: "10-06-2025",
				TrialEndDate: "20-06-2025"},
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("GetUser", mock.Anything, int64(1)).Return(premiumUser, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.IsTrial && s.Status == models.StatusTrial &&
						s.Category == models.DefaultCategory &&
						s.NextBillingDate.Equal(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
				})).Return(7, nil).Once()
				c.On("Set", mock.Anything, "subscription:7", mock.Anything, time.Hour).Return(errors.New("redis down")).Once()
			},
			wantID: 7,
		},
		{
			name:    "своя подписка без цены",
			req:     models.DummySubscription{Name: "Custom", StartDate: "01-06-2025"},
			wantErr: ErrPriceRequired,
		},
		{
			name:    "некорректная дата",
			req:     models.DummySubscription{Name: "Custom", Price: price(10), StartDate: "2025-06-01"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "неизвестный период",
			req:     models.DummySubscription{Name: "Custom", Price: price(10), StartDate: "01-06-2025", BillingCycle: "daily"},
			wantErr: ErrInvalidInput,
		},
		{
			name: "лимит бесплатного тарифа",
			req:  models.DummySubscription{Name: "Custom", Price: price(10), StartDate: "01-06-2025"},
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("GetUser", mock.Anything, int64(1)).Return(freeUser, nil).Once()
				r.On("CountActiveSubscriptions", mock.Anything, int64(1)).Return(5, nil).Once()
			},
			wantErr: ErrLimitReached,
			check: func(t *testing.T, r *RepoMock) {
				r.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
			},
		},
		{
			name: "пользователь не найден",
			req:  models.DummySubscription{Name: "Custom", Price: price(10), StartDate: "01-06-2025"},
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("GetUser", mock.Anything, int64(1)).Return(nil, storage.ErrUserNotFound).Once()
			},
			wantErr: storage.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c := &RepoMock{}, &CacheMock{}
			if tt.setupMocks != nil {
				tt.setupMocks(r, c)
			}
			id, err := newService(r, c).Create(context.Background(), 1, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			if tt.check != nil {
				tt.check(t, r)
			}
			r.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_Get(t *testing.T) {
	sub := &models.Subscription{ID: 3, UserID: 1, Name: "Spotify"}

	t.Run("берёт из кеша", func(t *testing.T) {
		r, c := &RepoMock{}, &CacheMock{}
		c.On("Get", mock.Anything, "subscription:3", mock.Anything).Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Subscription) = *sub
		}).Return(true, nil).Once()

		got, err := newService(r, c).Get(context.Background(), 1, 3)
		require.NoError(t, err)
		assert.Equal(t, "Spotify", got.Name)
		r.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("чужая запись в кеше идёт в хранилище", func(t *testing.T) {
		r, c := &RepoMock{}, &CacheMock{}
		c.On("Get", mock.Anything, "subscription:3", mock.Anything).Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Subscription) = *sub
		}).Return(true, nil).Once()
		r.On("GetSubscription", mock.Anything, int64(2), 3).Return(nil, storage.ErrSubscriptionNotFound).Once()

		_, err := newService(r, c).Get(context.Background(), 2, 3)
		assert.ErrorIs(t, err, storage.ErrSubscriptionNotFound)
	})

	t.Run("промах кеша", func(t *testing.T) {
		r, c := &RepoMock{}, &CacheMock{}
		c.On("Get", mock.Anything, "subscription:3", mock.Anything).Return(false, nil).Once()
		r.On("GetSubscription", mock.Anything, int64(1), 3).Return(sub, nil).Once()
		c.On("Set", mock.Anything, "subscription:3", sub, time.Hour).Return(nil).Once()

		got, err := newService(r, c).Get(context.Background(), 1, 3)
		require.NoError(t, err)
		assert.Equal(t, sub, got)
		c.AssertExpectations(t)
	})
}

func TestSubscriptionService_Update(t *testing.T) {
	current := &models.Subscription{ID: 3, UserID: 1, Name: "Old", Price: 100, Status: models.StatusPaused,
		BillingCycle: models.CycleMonthly}

	r, c := &RepoMock{}, &CacheMock{}
	r.On("GetSubscription", mock.Anything, int64(1), 3).Return(current, nil).Once()
	r.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return s.ID == 3 && s.Name == "New" && s.Price == 1200 &&
			s.BillingCycle == models.CycleYearly && s.Status == models.StatusPaused &&
			s.NextBillingDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	})).Return(nil).Once()
	c.On("Set", mock.Anything, "subscription:3", mock.Anything, time.Hour).Return(nil).Once()

	got, err := newService(r, c).Update(context.Background(), 1, 3, models.DummySubscription{
		Name: "New", Price: price(1200), BillingCycle: "yearly", StartDate: "01-01-2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	r.AssertExpectations(t)

	t.Run("подписка не найдена", func(t *testing.T) {
		r, c := &RepoMock{}, &CacheMock{}
		r.On("GetSubscription", mock.Anything, int64(1), 9).Return(nil, storage.ErrSubscriptionNotFound).Once()
		_, err := newService(r, c).Update(context.Background(), 1, 9, models.DummySubscription{})
		assert.ErrorIs(t, err, storage.ErrSubscriptionNotFound)
	})
}

func TestSubscriptionService_StatusChanges(t *testing.T) {
	tests := []struct {
		name   string
		call   func(s *SubscriptionService) error
		status models.Status
	}{
		{name: "пауза", call: func(s *SubscriptionService) error { return s.Pause(context.Background(), 1, 5) }, status: models.StatusPaused},
		{name: "возобновление", call: func(s *SubscriptionService) error { return s.Resume(context.Background(), 1, 5) }, status: models.StatusActive},
		{name: "отмена", call: func(s *SubscriptionService) error { return s.Cancel(context.Background(), 1, 5) }, status: models.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c := &RepoMock{}, &CacheMock{}
			c.On("Invalidate", mock.Anything, "subscription:5").Return(nil).Once()
			r.On("SetStatus", mock.Anything, int64(1), 5, tt.status).Return(nil).Once()
			require.NoError(t, tt.call(newService(r, c)))
			r.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}

	t.Run("подписка не найдена", func(t *testing.T) {
		r, c := &RepoMock{}, &CacheMock{}
		c.On("Invalidate", mock.Anything, "subscription:5").Return(errors.New("redis down")).Once()
		r.On("SetStatus", mock.Anything, int64(1), 5, models.StatusPaused).Return(storage.ErrSubscriptionNotFound).Once()
		assert.ErrorIs(t, newService(r, c).Pause(context.Background(), 1, 5), storage.ErrSubscriptionNotFound)
	})
}

func TestSubscriptionService_Delete(t *testing.T) {
	r, c := &RepoMock{}, &CacheMock{}
	c.On("Invalidate", mock.Anything, "subscription:5").Return(nil).Once()
	r.On("DeleteSubscription", mock.Anything, int64(1), 5).Return(storage.ErrSubscriptionNotFound).Once()

	err := newService(r, c).Delete(context.Background(), 1, 5)
	assert.ErrorIs(t, err, storage.ErrSubscriptionNotFound)
}

func TestSubscriptionService_ConvertTrial(t *testing.T) {
	end := fixedNow.AddDate(0, 0, 2)
	trial := &models.Subscription{ID: 5, UserID: 1, IsTrial: true, TrialEndDate: &end, Status: models.StatusTrial}

	r, c := &RepoMock{}, &CacheMock{}
	r.On("GetSubscription", mock.Anything, int64(1), 5).Return(trial, nil).Once()
	r.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return !s.IsTrial && s.TrialEndDate == nil && s.Status == models.StatusActive
	})).Return(nil).Once()
	c.On("Invalidate", mock.Anything, "subscription:5").Return(nil).Once()

	got, err := newService(r, c).ConvertTrial(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, got.IsTrial)
	r.AssertExpectations(t)
}

func TestSubscriptionService_List(t *testing.T) {
	active := []models.Subscription{{ID: 1}}
	all := []models.Subscription{{ID: 1}, {ID: 2, Status: models.StatusCancelled}}

	r, c := &RepoMock{}, &CacheMock{}
	r.On("ListActiveSubscriptions", mock.Anything, int64(1)).Return(active, nil).Once()
	r.On("ListAllSubscriptions", mock.Anything, int64(1)).Return(all, nil).Once()
	s := newService(r, c)

	got, err := s.List(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.List(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	r.On("ListActiveSubscriptions", mock.Anything, int64(2)).Return(nil, errors.New("db down")).Once()
	_, err = s.List(context.Background(), 2, false)
	assert.ErrorContains(t, err, "db down")
}

func TestSubscriptionService_UpdateNotifySettings(t *testing.T) {
	r, c := &RepoMock{}, &CacheMock{}
	ok := models.NotifySettings{NotifyBeforeDays: 2, NotifyTime: "09:00", Timezone: "Europe/Moscow"}
	r.On("UpdateNotifySettings", mock.Anything, int64(1), ok).Return(nil).Once()
	s := newService(r, c)

	require.NoError(t, s.UpdateNotifySettings(context.Background(), 1, ok))

	bad := ok
	bad.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, s.UpdateNotifySettings(context.Background(), 1, bad), ErrInvalidInput)
	r.AssertExpectations(t)
}
