package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
)

func TestParseAdd(t *testing.T) {
	c := catalog.MustDefault()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		args      string
		serviceID string
		title     string
		price     *float64
		cycle     string
		wantErr   bool
	}{
		{name: "сервис из каталога", args: "yandex_plus", serviceID: "yandex_plus"},
		{name: "каталог в другом регистре", args: "Spotify", serviceID: "spotify"},
		{name: "каталог с ценой и периодом", args: "spotify 1990 yearly", serviceID: "spotify", price: ptr(1990), cycle: "yearly"},
		{name: "своя подписка", args: "Моя Качалка 2500", title: "Моя Качалка", price: ptr(2500)},
		{name: "цена с запятой", args: "Газета 99,5 weekly", title: "Газета", price: ptr(99.5), cycle: "weekly"},
		{name: "цена с рублём", args: "Газета 100₽", title: "Газета", price: ptr(100)},
		{name: "своя подписка без цены", args: "Неизвестный сервис", wantErr: true},
		{name: "пусто", args: "   ", wantErr: true},
		{name: "отрицательная цена", args: "Газета -5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseAdd(tt.args, c, today)
			if tt.wantErr {
				var usage *UsageError
				require.ErrorAs(t, err, &usage)
				assert.Contains(t, usage.Error(), "/add")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.serviceID, req.ServiceID)
			assert.Equal(t, tt.title, req.Name)
			assert.Equal(t, tt.price, req.Price)
			assert.Equal(t, tt.cycle, req.BillingCycle)
			assert.Equal(t, "10-03-2025", req.StartDate)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("delete", "42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	id, err = ParseID("pause", " #7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	for _, args := range []string{"", "abc", "0", "-1", "1 2"} {
		_, err := ParseID("delete", args)
		var usage *UsageError
		assert.ErrorAs(t, err, &usage, args)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("  кино ")
	require.NoError(t, err)
	assert.Equal(t, "кино", q)

	_, err = ParseQuery("")
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }
