package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

const userColumns = `id, username, first_name, timezone, notify_before_days, notify_time,
	premium_type, premium_expires, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var expires sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.Timezone, &u.NotifyBeforeDays,
		&u.NotifyTime, &u.PremiumType, &expires, &u.CreatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		u.PremiumExpires = &expires.Time
	}
	return u, nil
}

// GetOrCreateUser возвращает пользователя по Telegram ID, создавая его при первом обращении.
// Username и имя обновляются, если пользователь уже существует.
func (s *Storage) GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error) {
	const op = "storage.GetOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (id, username, first_name)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (id) DO UPDATE
			  SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id, username, firstName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по Telegram ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateNotifySettings сохраняет настройки уведомлений.
func (s *Storage) UpdateNotifySettings(ctx context.Context, id int64, settings models.NotifySettings) error {
	const op = "storage.UpdateNotifySettings"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET notify_before_days = $1, notify_time = $2, timezone = $3
			  WHERE id = $4`
	res, err := s.DB.ExecContext(ctx, query, settings.NotifyBeforeDays, settings.NotifyTime, settings.Timezone, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// ListUsers возвращает всех пользователей. Используется планировщиком.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
