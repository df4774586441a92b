// Package schedule реализует бизнес-логику административных операций над
// сервисным календарём и отказами клиентов: недельный шаблон, исключения,
// пропуски. Используется HTTP-обработчиками персонала и клиентского бота.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/services/calendar"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/repository"
)

// ErrInvalidRule возвращается при попытке сохранить floating-исключение
// с нераспознаваемым правилом повторения.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// ErrDuplicateException возвращается, когда на дату уже есть исключение
// того же вида.
var ErrDuplicateException = errors.New("exception of this kind already exists for the date")

// patternCacheKey должен совпадать с ключом резолвера календаря, чтобы
// обновление шаблона сбрасывало его кешированную копию.
const patternCacheKey = "calendar:pattern"

// Repository определяет методы хранилища для административных операций.
type Repository interface {
	GetServicePattern(ctx context.Context) (*models.ServicePattern, error)
	UpdateServicePattern(ctx context.Context, pattern models.ServicePattern) error
	CreateException(ctx context.Context, exc models.ServiceException) (int, error)
	RemoveException(ctx context.Context, id int) (int, error)
	ListExceptions(ctx context.Context, limit, offset int) ([]*models.ServiceException, error)
	CreateSkip(ctx context.Context, skip models.Skip) error
}

// Cache описывает инвалидацию кешированного шаблона.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Service реализует административные операции календаря.
type Service struct {
	repo  Repository
	cache Cache // nil допустим
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// GetPattern возвращает недельный шаблон рабочих дней.
func (s *Service) GetPattern(ctx context.Context) (*models.ServicePattern, error) {
	const op = "schedule.GetPattern"
	pattern, err := s.repo.GetServicePattern(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pattern, nil
}

// UpdatePattern заменяет недельный шаблон целиком и сбрасывает его
// кешированную копию, чтобы резолвер не работал по устаревшему шаблону.
func (s *Service) UpdatePattern(ctx context.Context, req models.DummyServicePattern) error {
	const op = "schedule.UpdatePattern"

	weekdays := dedupeWeekdays(req.Weekdays)
	if err := s.repo.UpdateServicePattern(ctx, models.ServicePattern{Weekdays: weekdays}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, patternCacheKey); err != nil {
			s.log.Warn("failed to invalidate cached service pattern", sl.Err(err))
		}
	}
	return nil
}

// CreateException сохраняет исключение календаря и возвращает его ID.
// Правило floating-исключения проверяется на разборчивость до записи:
// нераспознаваемое правило в базе молча выпадало бы из расчёта календаря.
func (s *Service) CreateException(ctx context.Context, req models.DummyServiceException) (int, error) {
	const op = "schedule.CreateException"

	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}
	if recurrence == models.RecurrenceFloating {
		if _, err := calendar.ParseFloatingRule(req.RecurrenceRule); err != nil {
			return 0, fmt.Errorf("%s: %w: %w", op, ErrInvalidRule, err)
		}
	}

	id, err := s.repo.CreateException(ctx, models.ServiceException{
		Date:           date,
		Kind:           req.Kind,
		IsServiceDay:   req.IsServiceDay,
		Recurrence:     recurrence,
		RecurrenceRule: req.RecurrenceRule,
	})
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ExceptionUniqueConstraint) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicateException)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// RemoveException удаляет исключение по ID.
func (s *Service) RemoveException(ctx context.Context, id int) error {
	const op = "schedule.RemoveException"
	removed, err := s.repo.RemoveException(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if removed == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

// ListExceptions возвращает исключения календаря с пагинацией.
func (s *Service) ListExceptions(ctx context.Context, limit, offset int) ([]*models.ServiceException, error) {
	const op = "schedule.ListExceptions"
	result, err := s.repo.ListExceptions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateSkip записывает отказ клиента от питания на дату.
// Повторный отказ на ту же дату не является ошибкой.
func (s *Service) CreateSkip(ctx context.Context, req models.DummySkip) error {
	const op = "schedule.CreateSkip"
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.CreateSkip(ctx, models.Skip{CustomerUID: req.CustomerUID, Date: date}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// dedupeWeekdays убирает повторы и приводит дни к возрастающему порядку.
func dedupeWeekdays(weekdays []int) []int {
	seen := make(map[int]struct{}, len(weekdays))
	var result []int
	for _, day := range weekdays {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}
	sort.Ints(result)
	return result
}
