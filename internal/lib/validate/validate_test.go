package validate

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

func TestDefault_Subscription(t *testing.T) {
	price := 199.0
	tests := []struct {
		name   string
		req    models.DummySubscription
		fields []string
	}{
		{
			name: "корректная подписка из каталога",
			req:  models.DummySubscription{ServiceID: "spotify", StartDate: "10-03-2025"},
		},
		{
			name: "корректная своя подписка",
			req:  models.DummySubscription{Name: "Качалка", Price: &price, BillingCycle: "monthly", StartDate: "10-03-2025", TrialEndDate: "17-03-2025"},
		},
		{
			name:   "дата в другом формате",
			req:    models.DummySubscription{Name: "Качалка", StartDate: "2025-03-10"},
			fields: []string{"start_date"},
		},
		{
			name:   "нет ни названия, ни сервиса",
			req:    models.DummySubscription{StartDate: "10-03-2025", TrialEndDate: "31-02-2025"},
			fields: []string{"name", "trial_end_date"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().Struct(tt.req)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			got := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				got = append(got, fe.Field())
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestDefault_NotifySettings(t *testing.T) {
	assert.NoError(t, Default().Struct(models.NotifySettings{NotifyBeforeDays: 3, NotifyTime: "09:30", Timezone: "Europe/Moscow"}))

	err := Default().Struct(models.NotifySettings{NotifyBeforeDays: 3, NotifyTime: "9 утра", Timezone: "Europe/Moscow"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "notify_time", verrs[0].Field())
}
