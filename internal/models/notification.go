package models

import "time"

// Типы уведомлений, публикуемых планировщиком.
const (
	NotificationTrial   = "trial"
	NotificationBilling = "billing"
)

// Notification — конверт уведомления в очереди RabbitMQ.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
