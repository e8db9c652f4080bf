package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

const subscriptionColumns = `id, user_id, COALESCE(service_id, ''), name, category, price, currency,
	billing_cycle, start_date, next_billing_date, trial_end_date, status, is_trial,
	included_services, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		s        models.Subscription
		trialEnd sql.NullTime
		included []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.ServiceID, &s.Name, &s.Category, &s.Price, &s.Currency,
		&s.BillingCycle, &s.StartDate, &s.NextBillingDate, &trialEnd, &s.Status, &s.IsTrial,
		&included, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return s, err
	}
	if trialEnd.Valid {
		s.TrialEndDate = &trialEnd.Time
	}
	if len(included) > 0 {
		if err := json.Unmarshal(included, &s.IncludedServices); err != nil {
			return s, err
		}
	}
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func encodeIncluded(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (s *Storage) querySubscriptions(ctx context.Context, query string, args ...any) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSubscription вставляет новую подписку и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	included, err := encodeIncluded(sub.IncludedServices)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscriptions (user_id, service_id, name, category, price, currency,
			      billing_cycle, start_date, next_billing_date, trial_end_date, status, is_trial,
			      included_services, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  RETURNING id`
	var newID int
	err = s.DB.QueryRowContext(ctx, query,
		sub.UserID, nullString(sub.ServiceID), sub.Name, sub.Category, sub.Price, sub.Currency,
		sub.BillingCycle, sub.StartDate, sub.NextBillingDate, nullTime(sub.TrialEndDate), sub.Status, sub.IsTrial,
		included, sub.Notes).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку пользователя по ID.
func (s *Storage) GetSubscription(ctx context.Context, userID int64, id int) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions WHERE id = $1 AND user_id = $2`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	included, err := encodeIncluded(sub.IncludedServices)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE subscriptions
			  SET service_id = $1, name = $2, category = $3, price = $4, currency = $5,
			      billing_cycle = $6, start_date = $7, next_billing_date = $8, trial_end_date = $9,
			      status = $10, is_trial = $11, included_services = $12, notes = $13, updated_at = NOW()
			  WHERE id = $14 AND user_id = $15`
	res, err := s.DB.ExecContext(ctx, query,
		nullString(sub.ServiceID), sub.Name, sub.Category, sub.Price, sub.Currency,
		sub.BillingCycle, sub.StartDate, sub.NextBillingDate, nullTime(sub.TrialEndDate),
		sub.Status, sub.IsTrial, included, sub.Notes, sub.ID, sub.UserID)
	return affectedOne(op, res, err)
}

// DeleteSubscription удаляет подписку без возможности восстановления.
func (s *Storage) DeleteSubscription(ctx context.Context, userID int64, id int) error {
	const op = "storage.DeleteSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	return affectedOne(op, res, err)
}

// SetStatus меняет статус подписки. Перевод в cancelled означает мягкое удаление.
func (s *Storage) SetStatus(ctx context.Context, userID int64, id int, status models.Status) error {
	const op = "storage.SetStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1, updated_at = NOW()
			  WHERE id = $2 AND user_id = $3`
	res, err := s.DB.ExecContext(ctx, query, status, id, userID)
	return affectedOne(op, res, err)
}

func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	return nil
}

// ListActiveSubscriptions возвращает подписки пользователя кроме отменённых,
// упорядоченные по дате следующего списания.
func (s *Storage) ListActiveSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	const op = "storage.ListActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND status <> $2
			  ORDER BY next_billing_date, id`
	res, err := s.querySubscriptions(ctx, query, userID, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ListAllSubscriptions возвращает все подписки пользователя, включая отменённые.
func (s *Storage) ListAllSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	const op = "storage.ListAllSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY id`
	res, err := s.querySubscriptions(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// CountActiveSubscriptions считает подписки пользователя в статусах active и trial.
func (s *Storage) CountActiveSubscriptions(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountActiveSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM subscriptions
			  WHERE user_id = $1 AND status IN ($2, $3)`
	var n int
	if err := s.DB.QueryRowContext(ctx, query, userID, models.StatusActive, models.StatusTrial).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// FindDueForRollforward находит подписки, дата списания которых наступила или прошла.
// Бессрочные подписки не продлеваются и в выборку не попадают.
func (s *Storage) FindDueForRollforward(ctx context.Context, today time.Time) ([]models.Subscription, error) {
	const op = "storage.FindDueForRollforward"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE next_billing_date <= $1
			    AND status IN ($2, $3)
			    AND billing_cycle <> $4
			  ORDER BY id`
	res, err := s.querySubscriptions(ctx, query, today,
		models.StatusActive, models.StatusTrial, models.CycleLifetime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UpdateNextBillingDate обновляет дату следующего списания.
func (s *Storage) UpdateNextBillingDate(ctx context.Context, id int, next time.Time) error {
	const op = "storage.UpdateNextBillingDate"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
		      SET next_billing_date = $1, updated_at = NOW()
		      WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, next, id)
	return affectedOne(op, res, err)
}

// FindUpcomingBillings возвращает активные подписки пользователя,
// списание по которым произойдёт в ближайшие days дней, включая сегодня.
func (s *Storage) FindUpcomingBillings(ctx context.Context, userID int64, today time.Time, days int) ([]models.Subscription, error) {
	const op = "storage.FindUpcomingBillings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			    AND status = $2
			    AND next_billing_date BETWEEN $3 AND $4
			  ORDER BY next_billing_date, id`
	res, err := s.querySubscriptions(ctx, query, userID, models.StatusActive, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
