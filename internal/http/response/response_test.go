package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/validate"
)

type sample struct {
	Name   string  `json:"name" validate:"required"`
	Cycle  string  `json:"billing_cycle" validate:"omitempty,oneof=weekly monthly"`
	Price  float64 `json:"price" validate:"gte=0"`
	Date   string  `json:"start_date" validate:"omitempty,datetime=02-01-2006"`
	Code   string  `json:"currency" validate:"omitempty,len=3"`
	Before int     `json:"notify_before_days" validate:"lte=30"`
	Email  string  `json:"email" validate:"omitempty,email"`
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		want []string
	}{
		{
			name: "нет обязательного поля",
			in:   sample{},
			want: []string{"name is required"},
		},
		{
			name: "несколько ошибок",
			in:   sample{Name: "x", Cycle: "daily", Price: -1, Date: "2024-01-01", Code: "RU", Before: 31},
			want: []string{
				"billing_cycle must be one of: weekly monthly",
				"price must be at least 0",
				"start_date must match layout 02-01-2006",
				"currency must be exactly 3 characters",
				"notify_before_days must be at most 30",
			},
		},
		{
			name: "тег без шаблона",
			in:   sample{Name: "x", Email: "not-an-email"},
			want: []string{"email is invalid"},
		},
	}

	v := validate.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			require.Error(t, err)
			resp := ValidationError(err)
			assert.Equal(t, StatusError, resp.Status)
			for _, msg := range tt.want {
				assert.Contains(t, resp.Error, msg)
			}
		})
	}
}

func TestValidationError_NotValidatorError(t *testing.T) {
	resp := ValidationError(errors.New("boom"))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "invalid request", resp.Error)
}

func TestStatusOKWithData(t *testing.T) {
	resp := StatusOKWithData(map[string]any{"id": 1})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"id": 1}, resp.Data)

	e := Error("boom")
	assert.Equal(t, StatusError, e.Status)
	assert.Equal(t, "boom", e.Error)
}
