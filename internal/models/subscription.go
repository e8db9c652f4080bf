// Package models содержит доменные структуры трекера подписок: подписку,
// пользователя, а также результаты аналитики (пересечения, советы, триалы, отчёт).
package models

import (
	"strings"
	"time"
)

// BillingCycle — период списания подписки.
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
	CycleLifetime  BillingCycle = "lifetime"
)

// ParseBillingCycle разбирает строку в BillingCycle. Пустая строка означает помесячно.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	switch c := BillingCycle(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CycleMonthly, true
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly, CycleLifetime:
		return c, true
	default:
		return "", false
	}
}

// Status — статус подписки.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusTrial     Status = "trial"
)

const (
	// DefaultCategory используется, если категория не указана.
	DefaultCategory = "other"
	// DefaultCurrency — валюта по умолчанию.
	DefaultCurrency = "RUB"
)

// Subscription — основная модель подписки пользователя.
// ServiceID пустой для пользовательских (не из каталога) подписок.
type Subscription struct {
	ID               int          `json:"id"`
	UserID           int64        `json:"user_id"`
	ServiceID        string       `json:"service_id,omitempty"`
	Name             string       `json:"name"`
	Category         string       `json:"category"`
	Price            float64      `json:"price"`
	Currency         string       `json:"currency"`
	BillingCycle     BillingCycle `json:"billing_cycle"`
	StartDate        time.Time    `json:"start_date"`
	NextBillingDate  time.Time    `json:"next_billing_date"`
	TrialEndDate     *time.Time   `json:"trial_end_date,omitempty"`
	Status           Status       `json:"status"`
	IsTrial          bool         `json:"is_trial"`
	IncludedServices []string     `json:"included_services,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// IsActiveOrTrial сообщает, участвует ли подписка в поиске пересечений.
func (s *Subscription) IsActiveOrTrial() bool {
	return s.Status == StatusActive || s.Status == StatusTrial
}

// DummySubscription используется для приёма данных из JSON-запроса
// до валидации и преобразования в Subscription. Даты приходят строками.
type DummySubscription struct {
	ServiceID        string   `json:"service_id,omitempty"`
	Name             string   `json:"name" validate:"required_without=ServiceID,max=255"`
	Category         string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Price            *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Currency         string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	BillingCycle     string   `json:"billing_cycle,omitempty" validate:"omitempty,oneof=weekly monthly quarterly yearly lifetime"`
	StartDate        string   `json:"start_date" validate:"required,datetime=02-01-2006"`
	TrialEndDate     string   `json:"trial_end_date,omitempty" validate:"omitempty,datetime=02-01-2006"`
	IncludedServices []string `json:"included_services,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// DateLayout — формат дат во входящих запросах.
const DateLayout = "02-01-2006"
