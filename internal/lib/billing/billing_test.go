package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		cycle models.BillingCycle
		want  float64
	}{
		{"еженедельно", 100, models.CycleWeekly, 433},
		{"ежемесячно", 199, models.CycleMonthly, 199},
		{"ежеквартально", 300, models.CycleQuarterly, 100},
		{"ежегодно", 1200, models.CycleYearly, 100},
		{"навсегда", 5000, models.CycleLifetime, 0},
		{"неизвестный период", 250, models.BillingCycle("daily"), 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MonthlyEquivalent(tt.price, tt.cycle), 1e-9)
		})
	}
}

func TestMonthlyEquivalent_Linear(t *testing.T) {
	cycles := []models.BillingCycle{
		models.CycleWeekly, models.CycleMonthly, models.CycleQuarterly,
		models.CycleYearly, models.CycleLifetime,
	}
	prices := []float64{0, 1, 99.9, 299, 12345.67}

	for _, c := range cycles {
		for _, p := range prices {
			assert.InDelta(t, 2*MonthlyEquivalent(p, c), MonthlyEquivalent(2*p, c), 1e-9, "cycle %s price %v", c, p)
		}
	}
	for _, p := range prices {
		assert.Equal(t, p, MonthlyEquivalent(p, models.CycleMonthly))
	}
}

func TestNextBilling(t *testing.T) {
	ref := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		cycle models.BillingCycle
		want  time.Time
	}{
		{
			name:  "старт в будущем не сдвигается",
			start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleMonthly,
			want:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "старт сегодня сдвигается на период",
			start: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleWeekly,
			want:  time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "30-дневные шаги",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleMonthly,
			want:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "квартал",
			start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleQuarterly,
			want:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 90),
		},
		{
			name:  "год по 365 дней",
			start: time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleYearly,
			want:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "lifetime не продвигается",
			start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			cycle: models.CycleLifetime,
			want:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBilling(tt.start, tt.cycle, ref)
			assert.Equal(t, tt.want, got)
			if tt.cycle != models.CycleLifetime {
				assert.True(t, got.After(Date(ref)))
			}
		})
	}
}

func TestNextBilling_AlwaysAfterRef(t *testing.T) {
	start := time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC)
	for _, c := range []models.BillingCycle{models.CycleWeekly, models.CycleMonthly, models.CycleQuarterly, models.CycleYearly} {
		for offset := 0; offset < 800; offset += 37 {
			ref := start.AddDate(0, 0, offset)
			got := NextBilling(start, c, ref)
			assert.True(t, got.After(ref), "cycle %s ref %s got %s", c, ref, got)
			assert.LessOrEqual(t, DaysBetween(ref, got), Period(c))
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 3, 13, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}
