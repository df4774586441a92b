package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// ListEligibleSubscriptions возвращает активные подписки, чей оплаченный
// период пересекает сутки выдачи. Границы суток передаются UTC-инстантами,
// рассчитанными для домашнего часового пояса сервиса, чтобы сравнение
// оставалось верным при переходах на летнее время.
func (s *Storage) ListEligibleSubscriptions(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListEligibleSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, customer_uid, email, status, period_start, period_end
			  FROM subscriptions
			  WHERE status = $1
			    AND period_start IS NOT NULL
			    AND period_end IS NOT NULL
			    AND period_start <= $3
			    AND period_end >= $2
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, models.SubscriptionStatusActive, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		if err := rows.Scan(&item.ID, &item.CustomerUID, &item.Email, &item.Status,
			&item.PeriodStart, &item.PeriodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveMissingPeriod считает активные подписки без границ оплаченного
// периода. Такие записи молча выпадают из выдачи, поэтому о них сообщается
// отдельным критическим оповещением.
func (s *Storage) CountActiveMissingPeriod(ctx context.Context) (int, error) {
	const op = "storage.CountActiveMissingPeriod"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM subscriptions
			  WHERE status = $1
			    AND (period_start IS NULL OR period_end IS NULL)`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, models.SubscriptionStatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// HasSkip сообщает, отказался ли клиент от питания на дату.
func (s *Storage) HasSkip(ctx context.Context, customerUID string, date time.Time) (bool, error) {
	const op = "storage.HasSkip"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM skips WHERE customer_uid = $1 AND skip_date = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, customerUID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateSkip записывает отказ клиента от питания на дату. Повторный отказ
// на ту же дату не является ошибкой.
func (s *Storage) CreateSkip(ctx context.Context, skip models.Skip) error {
	const op = "storage.CreateSkip"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO skips (customer_uid, skip_date)
			  VALUES ($1, $2)
			  ON CONFLICT (customer_uid, skip_date) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, skip.CustomerUID, skip.Date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertEntitlement записывает квоту клиента на дату выдачи и возвращает
// результирующее meals_allowed. При конфликте обновляется только
// meals_allowed: счётчик погашений meals_redeemed ветка конфликта не
// трогает ни при каких обстоятельствах, повторный прогон выдачи не может
// его обнулить.
func (s *Storage) UpsertEntitlement(ctx context.Context, customerUID string, date time.Time, hasSkip bool) (int, error) {
	const op = "storage.UpsertEntitlement"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	allowed := 1
	if hasSkip {
		allowed = 0
	}

	query := `INSERT INTO entitlements (customer_uid, service_date, meals_allowed, meals_redeemed)
			  VALUES ($1, $2, $3, 0)
			  ON CONFLICT (customer_uid, service_date)
			  DO UPDATE SET meals_allowed = EXCLUDED.meals_allowed
			  RETURNING meals_allowed`
	var mealsAllowed int
	if err := s.DB.QueryRowContext(ctx, query, customerUID, date, allowed).Scan(&mealsAllowed); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return mealsAllowed, nil
}

// ReadEntitlement возвращает квоту клиента на дату выдачи.
func (s *Storage) ReadEntitlement(ctx context.Context, customerUID string, date time.Time) (*models.Entitlement, error) {
	const op = "storage.ReadEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT customer_uid, service_date, meals_allowed, meals_redeemed
			  FROM entitlements
			  WHERE customer_uid = $1 AND service_date = $2`
	row := s.DB.QueryRowContext(ctx, query, customerUID, date)

	var result models.Entitlement
	if err := row.Scan(&result.CustomerUID, &result.ServiceDate,
		&result.MealsAllowed, &result.MealsRedeemed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// FindCredential возвращает талон клиента на дату выдачи.
func (s *Storage) FindCredential(ctx context.Context, customerUID string, date time.Time) (*models.Credential, error) {
	const op = "storage.FindCredential"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT customer_uid, service_date, token_id, COALESCE(short_code, ''),
			      COALESCE(signed_token, ''), issued_at, expires_at, used_at
			  FROM credentials
			  WHERE customer_uid = $1 AND service_date = $2`
	row := s.DB.QueryRowContext(ctx, query, customerUID, date)

	var result models.Credential
	if err := row.Scan(&result.CustomerUID, &result.ServiceDate, &result.TokenID,
		&result.ShortCode, &result.SignedToken, &result.IssuedAt,
		&result.ExpiresAt, &result.UsedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// InsertCredential выполняет вставку нового талона. Именно вставку, а не
// upsert: проигрыш гонки конкурентному прогону должен проявиться нарушением
// ограничения уникальности, которое вызывающая сторона различает через
// IsUniqueViolation и разрешает повторным чтением победившей строки.
func (s *Storage) InsertCredential(ctx context.Context, cred *models.Credential) error {
	const op = "storage.InsertCredential"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO credentials (customer_uid, service_date, token_id, short_code,
			      signed_token, issued_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query, cred.CustomerUID, cred.ServiceDate,
		cred.TokenID, cred.ShortCode, cred.SignedToken, cred.IssuedAt, cred.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateCredentialSecrets дозаполняет секреты у частичной записи талона
// (легаси-строки без короткого кода или подписанного токена).
func (s *Storage) UpdateCredentialSecrets(ctx context.Context, cred *models.Credential) error {
	const op = "storage.UpdateCredentialSecrets"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE credentials
			  SET token_id = $3, short_code = $4, signed_token = $5, issued_at = $6, expires_at = $7
			  WHERE customer_uid = $1 AND service_date = $2`
	if _, err := s.DB.ExecContext(ctx, query, cred.CustomerUID, cred.ServiceDate,
		cred.TokenID, cred.ShortCode, cred.SignedToken, cred.IssuedAt, cred.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
