package models

import "time"

// PremiumType — тарифный план пользователя.
type PremiumType string

const (
	PremiumFree     PremiumType = "free"
	PremiumMonthly  PremiumType = "monthly"
	PremiumYearly   PremiumType = "yearly"
	PremiumLifetime PremiumType = "lifetime"
)

// User — пользователь бота. ID совпадает с идентификатором Telegram.
type User struct {
	ID               int64       `json:"id"`
	Username         string      `json:"username,omitempty"`
	FirstName        string      `json:"first_name,omitempty"`
	Timezone         string      `json:"timezone"`
	NotifyBeforeDays int         `json:"notify_before_days"`
	NotifyTime       string      `json:"notify_time"`
	PremiumType      PremiumType `json:"premium_type"`
	PremiumExpires   *time.Time  `json:"premium_expires,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// IsPremium сообщает, действует ли у пользователя премиум на момент now.
func (u *User) IsPremium(now time.Time) bool {
	switch u.PremiumType {
	case PremiumLifetime:
		return true
	case PremiumMonthly, PremiumYearly:
		return u.PremiumExpires != nil && u.PremiumExpires.After(now)
	default:
		return false
	}
}

// NotifySettings — настройки уведомлений пользователя.
type NotifySettings struct {
	NotifyBeforeDays int    `json:"notify_before_days" validate:"gte=0,lte=30"`
	NotifyTime       string `json:"notify_time" validate:"required,datetime=15:04"`
	Timezone         string `json:"timezone" validate:"required"`
}
