// Package repository реализует хранилище данных на основе PostgreSQL
// для движка ежедневной выдачи талонов: сервисный календарь, подписки,
// отказы, квоты и выданные талоны. Ограничения уникальности базы —
// единственный примитив синхронизации конкурентных прогонов выдачи.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound возвращается методами чтения, когда запись отсутствует.
var ErrNotFound = errors.New("not found")

// Имена ограничений уникальности, по которым различается проигрыш гонки
// вставки и настоящая ошибка данных.
const (
	// CredentialUniqueConstraint — уникальность талона по (клиент, дата).
	CredentialUniqueConstraint = "credentials_customer_uid_service_date_key"
	// EntitlementUniqueConstraint — уникальность квоты по (клиент, дата).
	EntitlementUniqueConstraint = "entitlements_customer_uid_service_date_key"
	// ExceptionUniqueConstraint — не больше одного исключения вида на дату.
	ExceptionUniqueConstraint = "service_exceptions_date_kind_key"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с календарём, подписками и талонами.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'credentials'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table credentials missing or query error: %w", err)
	}
	return nil
}

// IsUniqueViolation сообщает, вызвана ли ошибка нарушением именно указанного
// ограничения уникальности. Проигрыш гонки вставки определяется по коду
// ошибки и имени ограничения, а не по тексту сообщения, чтобы не спутать
// его с другими нарушениями целостности.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCredentialUniqueViolation сообщает, что вставка талона проиграла гонку
// конкурентному прогону выдачи.
func (s *Storage) IsCredentialUniqueViolation(err error) bool {
	return IsUniqueViolation(err, CredentialUniqueConstraint)
}
