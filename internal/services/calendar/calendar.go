// Package calendar реализует резолвер сервисного календаря: решает,
// является ли дата рабочим днём выдачи, с учётом приоритета переопределений
// над недельным шаблоном.
//
// Приоритет, от старшего к младшему: special_event на дату; holiday с
// is_service_day = false; членство дня недели в шаблоне. Повторяющиеся
// исключения (annual, floating) разворачиваются в конкретные даты перед
// сравнением. При недоступности хранилища резолвер деградирует до правила
// "только недельный шаблон" вместо остановки выдачи.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/metrics"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// ErrNoServiceDay возвращается NextServiceDay, когда в пределах границы
// поиска нет ни одного рабочего дня. Граница защищает от бесконечного
// перебора по полностью закрытому календарю.
var ErrNoServiceDay = errors.New("no service day found within search bound")

const patternCacheKey = "calendar:pattern"
const patternCacheTTL = 12 * time.Hour

// Repository определяет методы чтения календаря из хранилища.
type Repository interface {
	// GetServicePattern возвращает недельный шаблон рабочих дней.
	GetServicePattern(ctx context.Context) (*models.ServicePattern, error)
	// ListExceptionsForDate возвращает исключения, способные затронуть дату.
	ListExceptionsForDate(ctx context.Context, date time.Time) ([]*models.ServiceException, error)
}

// Cache описывает методы кеширования последнего успешно загруженного шаблона.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service реализует резолвер сервисного календаря.
type Service struct {
	repo  Repository
	cache Cache // nil допустим, кеш опционален
	log   *slog.Logger

	searchBound int

	mu       sync.RWMutex
	fallback models.ServicePattern // последний успешно загруженный шаблон
}

// New создает новый экземпляр Service. defaultWeekdays используется как
// шаблон последней надежды, пока из хранилища не загружен настоящий.
func New(repo Repository, cache Cache, log *slog.Logger, defaultWeekdays []int, searchBound int) *Service {
	if searchBound <= 0 {
		searchBound = 7
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		log:         log,
		searchBound: searchBound,
		fallback:    models.ServicePattern{Weekdays: defaultWeekdays},
	}
}

// IsServiceDay сообщает, является ли дата рабочим днём выдачи.
// Метод не возвращает ошибку: при недоступности хранилища применяется
// деградированное правило по недельному шаблону.
func (s *Service) IsServiceDay(ctx context.Context, date time.Time) bool {
	day := truncateToDay(date)
	pattern := s.loadPattern(ctx)

	exceptions, err := s.repo.ListExceptionsForDate(ctx, day)
	if err != nil {
		s.log.Warn("calendar degraded to weekday-only rule", sl.Err(err),
			slog.String("date", day.Format(models.DateLayout)))
		metrics.CalendarDegraded.Inc()
		return pattern.Contains(day.Weekday())
	}

	var special, holiday *models.ServiceException
	for _, exc := range exceptions {
		if !s.appliesTo(exc, day) {
			continue
		}
		switch exc.Kind {
		case models.ExceptionKindSpecialEvent:
			special = exc
		case models.ExceptionKindHoliday:
			holiday = exc
		}
	}

	if special != nil {
		return special.IsServiceDay
	}
	if holiday != nil && !holiday.IsServiceDay {
		return false
	}
	return pattern.Contains(day.Weekday())
}

// NextServiceDay возвращает первый рабочий день строго после after.
// Поиск ограничен searchBound календарными днями.
func (s *Service) NextServiceDay(ctx context.Context, after time.Time) (time.Time, error) {
	const op = "calendar.NextServiceDay"
	day := truncateToDay(after)
	for i := 1; i <= s.searchBound; i++ {
		candidate := day.AddDate(0, 0, i)
		if s.IsServiceDay(ctx, candidate) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: %w", op, ErrNoServiceDay)
}

// loadPattern возвращает недельный шаблон: из хранилища, при его
// недоступности — из кеша, затем из последней успешно загруженной копии.
func (s *Service) loadPattern(ctx context.Context) models.ServicePattern {
	pattern, err := s.repo.GetServicePattern(ctx)
	if err == nil {
		s.mu.Lock()
		s.fallback = *pattern
		s.mu.Unlock()
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, patternCacheKey, pattern, patternCacheTTL); cacheErr != nil {
				s.log.Warn("failed to cache service pattern", sl.Err(cacheErr))
			}
		}
		return *pattern
	}

	s.log.Warn("service pattern unavailable, using last known copy", sl.Err(err))
	metrics.CalendarDegraded.Inc()

	if s.cache != nil {
		var cached models.ServicePattern
		found, cacheErr := s.cache.Get(ctx, patternCacheKey, &cached)
		if cacheErr != nil {
			s.log.Warn("failed to read cached service pattern", sl.Err(cacheErr))
		}
		if found {
			return cached
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// appliesTo проверяет, затрагивает ли исключение конкретную дату,
// разворачивая повторяющиеся правила в даты целевого года.
func (s *Service) appliesTo(exc *models.ServiceException, day time.Time) bool {
	switch exc.Recurrence {
	case models.RecurrenceAnnual:
		return exc.Date.Month() == day.Month() && exc.Date.Day() == day.Day()
	case models.RecurrenceFloating:
		rule, err := ParseFloatingRule(exc.RecurrenceRule)
		if err != nil {
			s.log.Warn("skipping exception with malformed recurrence rule",
				slog.Int("id", exc.ID), sl.Err(err))
			return false
		}
		resolved, err := rule.Resolve(day.Year())
		if err != nil {
			s.log.Warn("recurrence rule does not resolve for year",
				slog.Int("id", exc.ID), slog.Int("year", day.Year()), sl.Err(err))
			return false
		}
		return resolved.Month() == day.Month() && resolved.Day() == day.Day()
	default:
		excDay := truncateToDay(exc.Date)
		return excDay.Year() == day.Year() && excDay.Month() == day.Month() && excDay.Day() == day.Day()
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
