package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

var today = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	st, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	f := NewTestDataFactory(st)
	f.CreateUser(t, 42, "alice")

	trialEnd := today.AddDate(0, 0, 3)
	id, err := st.CreateSubscription(ctx, models.Subscription{
		UserID:           42,
		ServiceID:        "yandex_plus",
		Name:             "Яндекс Плюс",
		Category:         "streaming",
		Price:            299,
		Currency:         "RUB",
		BillingCycle:     models.CycleMonthly,
		StartDate:        today,
		NextBillingDate:  today.AddDate(0, 0, 30),
		TrialEndDate:     &trialEnd,
		Status:           models.StatusTrial,
		IsTrial:          true,
		IncludedServices: []string{"kinopoisk", "yandex_music"},
	})
	require.NoError(t, err)

	got, err := st.GetSubscription(ctx, 42, id)
	require.NoError(t, err)
	assert.Equal(t, "yandex_plus", got.ServiceID)
	assert.Equal(t, []string{"kinopoisk", "yandex_music"}, got.IncludedServices)
	require.NotNil(t, got.TrialEndDate)
	assert.True(t, got.TrialEndDate.Equal(trialEnd))
	assert.True(t, got.IsTrial)

	_, err = st.GetSubscription(ctx, 7, id)
	assert.ErrorIs(t, err, storage.ErrSubscriptionNotFound)

	got.Price = 399
	got.IncludedServices = nil
	require.NoError(t, st.UpdateSubscription(ctx, *got))
	got, err = st.GetSubscription(ctx, 42, id)
	require.NoError(t, err)
	assert.Equal(t, 399.0, got.Price)
	assert.Empty(t, got.IncludedServices)

	require.NoError(t, st.SetStatus(ctx, 42, id, models.StatusCancelled))
	active, err := st.ListActiveSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := st.ListAllSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, st.DeleteSubscription(ctx, 42, id))
	assert.ErrorIs(t, st.DeleteSubscription(ctx, 42, id), storage.ErrSubscriptionNotFound)
	assert.ErrorIs(t, st.SetStatus(ctx, 42, id, models.StatusPaused), storage.ErrSubscriptionNotFound)
}

func TestStorage_ListActiveSubscriptions(t *testing.T) {
	st, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	f := NewTestDataFactory(st)
	f.CreateUser(t, 1, "u1")
	f.CreateUser(t, 2, "u2")
	late := f.CreateSubscription(t, 1, "Late", 100, models.CycleMonthly, today.AddDate(0, 0, 20), models.StatusActive)
	early := f.CreateSubscription(t, 1, "Early", 100, models.CycleMonthly, today.AddDate(0, 0, 2), models.StatusPaused)
	f.CreateSubscription(t, 1, "Gone", 100, models.CycleMonthly, today, models.StatusCancelled)
	f.CreateSubscription(t, 2, "Other", 100, models.CycleMonthly, today, models.StatusActive)

	got, err := st.ListActiveSubscriptions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)

	n, err := st.CountActiveSubscriptions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorage_Scheduling(t *testing.T) {
	st, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	f := NewTestDataFactory(st)
	f.CreateUser(t, 1, "u1")
	due := f.CreateSubscription(t, 1, "Due", 100, models.CycleMonthly, today.AddDate(0, 0, -1), models.StatusActive)
	f.CreateSubscription(t, 1, "Lifetime", 100, models.CycleLifetime, today.AddDate(0, 0, -1), models.StatusActive)
	f.CreateSubscription(t, 1, "Paused", 100, models.CycleMonthly, today.AddDate(0, 0, -1), models.StatusPaused)
	soon := f.CreateSubscription(t, 1, "Soon", 100, models.CycleMonthly, today.AddDate(0, 0, 3), models.StatusActive)
	f.CreateSubscription(t, 1, "Later", 100, models.CycleMonthly, today.AddDate(0, 0, 10), models.StatusActive)

	found, err := st.FindDueForRollforward(ctx, today)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due, found[0].ID)

	require.NoError(t, st.UpdateNextBillingDate(ctx, due, today.AddDate(0, 0, 29)))
	found, err = st.FindDueForRollforward(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, found)

	upcoming, err := st.FindUpcomingBillings(ctx, 1, today, 3)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon, upcoming[0].ID)
}

func TestStorage_Users(t *testing.T) {
	st, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	u, err := st.GetOrCreateUser(ctx, 100, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, models.PremiumFree, u.PremiumType)
	assert.Equal(t, 3, u.NotifyBeforeDays)

	u, err = st.GetOrCreateUser(ctx, 100, "bobby", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "bobby", u.Username)

	require.NoError(t, st.UpdateNotifySettings(ctx, 100, models.NotifySettings{
		NotifyBeforeDays: 1, NotifyTime: "09:30", Timezone: "Asia/Almaty",
	}))
	u, err = st.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, u.NotifyBeforeDays)
	assert.Equal(t, "Asia/Almaty", u.Timezone)

	_, err = st.GetUser(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.ErrorIs(t, st.UpdateNotifySettings(ctx, 404, models.NotifySettings{}), storage.ErrUserNotFound)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
