package trials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var today = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func trial(id int, price float64, daysLeft int) models.Subscription {
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, daysLeft)
	return models.Subscription{
		ID:           id,
		Name:         "trial",
		Price:        price,
		BillingCycle: models.CycleMonthly,
		Status:       models.StatusTrial,
		IsTrial:      true,
		TrialEndDate: &end,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		days int
		want models.TrialUrgency
	}{
		{0, models.UrgencyCritical},
		{1, models.UrgencyCritical},
		{2, models.UrgencyWarning},
		{3, models.UrgencyWarning},
		{4, models.UrgencyUpcoming},
		{7, models.UrgencyUpcoming},
		{8, models.UrgencySafe},
		{30, models.UrgencySafe},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.days), "days=%d", tt.days)
	}
}

func TestAlerts_SortedAndFiltered(t *testing.T) {
	notTrial := trial(9, 100, 2)
	notTrial.IsTrial = false

	subs := []models.Subscription{
		trial(1, 100, 8),
		trial(2, 200, 3),
		trial(3, 300, 1),
		trial(4, 400, 7),
		trial(5, 500, 2),
		trial(6, 600, -1),
		trial(7, 700, 20),
		notTrial,
	}

	got := Alerts(subs, today, 14)
	require.Len(t, got, 5)

	ids := make([]int, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.Subscription.ID)
	}
	assert.Equal(t, []int{3, 5, 2, 4, 1}, ids)
	assert.Equal(t, models.UrgencyCritical, got[0].Urgency)
	assert.Equal(t, models.UrgencySafe, got[4].Urgency)
	assert.Equal(t, 300.0, got[0].PriceAfterTrial)
	assert.Contains(t, got[0].Message, "ЗАВТРА")
}

func TestCritical(t *testing.T) {
	got := Critical([]models.Subscription{trial(1, 100, 5), trial(2, 200, 3), trial(3, 300, 0)}, today)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Subscription.ID)
	assert.Equal(t, 2, got[1].Subscription.ID)
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	assert.Zero(t, empty.Total)
	assert.NotEmpty(t, empty.Message)

	sum := Summarize(Alerts([]models.Subscription{trial(1, 100, 1), trial(2, 200, 2), trial(3, 300, 6)}, today, 30))
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Critical)
	assert.Equal(t, 1, sum.Warning)
	assert.Equal(t, 600.0, sum.PotentialCharges)
	assert.Contains(t, sum.Message, "🔴")

	calm := Summarize(Alerts([]models.Subscription{trial(1, 100, 6)}, today, 30))
	assert.Contains(t, calm.Message, "🟢")
}
