package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// GetServicePattern возвращает недельный шаблон рабочих дней.
func (s *Storage) GetServicePattern(ctx context.Context) (*models.ServicePattern, error) {
	const op = "storage.GetServicePattern"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT weekday FROM service_pattern_days ORDER BY weekday`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var pattern models.ServicePattern
	for rows.Next() {
		var weekday int
		if err := rows.Scan(&weekday); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pattern.Weekdays = append(pattern.Weekdays, weekday)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &pattern, nil
}

// UpdateServicePattern заменяет недельный шаблон целиком в одной транзакции.
func (s *Storage) UpdateServicePattern(ctx context.Context, pattern models.ServicePattern) error {
	const op = "storage.UpdateServicePattern"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM service_pattern_days`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, weekday := range pattern.Weekdays {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO service_pattern_days (weekday) VALUES ($1) ON CONFLICT DO NOTHING`, weekday); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateException вставляет новое исключение календаря и возвращает его ID.
func (s *Storage) CreateException(ctx context.Context, exc models.ServiceException) (int, error) {
	const op = "storage.CreateException"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO service_exceptions (exception_date, kind, is_service_day, recurrence, recurrence_rule)
			  VALUES ($1, $2, $3, $4, NULLIF($5, ''))
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		exc.Date, exc.Kind, exc.IsServiceDay, exc.Recurrence, exc.RecurrenceRule).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// RemoveException удаляет исключение по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveException(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveException"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM service_exceptions WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListExceptions возвращает список исключений календаря с пагинацией.
func (s *Storage) ListExceptions(ctx context.Context, limit, offset int) ([]*models.ServiceException, error) {
	const op = "storage.ListExceptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, exception_date, kind, is_service_day, recurrence, COALESCE(recurrence_rule, '')
			  FROM service_exceptions
			  ORDER BY exception_date
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanExceptions(rows, op)
}

// ListExceptionsForDate возвращает исключения, способные затронуть дату:
// разовые на эту же дату и все повторяющиеся. Повторяющиеся разворачивает
// в конкретные даты вызывающая сторона (резолвер календаря).
func (s *Storage) ListExceptionsForDate(ctx context.Context, date time.Time) ([]*models.ServiceException, error) {
	const op = "storage.ListExceptionsForDate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, exception_date, kind, is_service_day, recurrence, COALESCE(recurrence_rule, '')
			  FROM service_exceptions
			  WHERE (recurrence = 'none' AND exception_date = $1)
			     OR recurrence <> 'none'`
	rows, err := s.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanExceptions(rows, op)
}

func scanExceptions(rows *sql.Rows, op string) ([]*models.ServiceException, error) {
	var result []*models.ServiceException
	for rows.Next() {
		var item models.ServiceException
		if err := rows.Scan(&item.ID, &item.Date, &item.Kind, &item.IsServiceDay,
			&item.Recurrence, &item.RecurrenceRule); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadException возвращает исключение по ID.
func (s *Storage) ReadException(ctx context.Context, id int) (*models.ServiceException, error) {
	const op = "storage.ReadException"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, exception_date, kind, is_service_day, recurrence, COALESCE(recurrence_rule, '')
			  FROM service_exceptions WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.ServiceException
	if err := row.Scan(&result.ID, &result.Date, &result.Kind, &result.IsServiceDay,
		&result.Recurrence, &result.RecurrenceRule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}
