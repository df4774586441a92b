package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetServicePattern(ctx context.Context) (*models.ServicePattern, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServicePattern), args.Error(1)
}

func (m *MockRepository) ListExceptionsForDate(ctx context.Context, date time.Time) ([]*models.ServiceException, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ServiceException), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// Недельный шаблон понедельник-пятница.
var weekdayPattern = &models.ServicePattern{Weekdays: []int{1, 2, 3, 4, 5}}

var (
	tuesday  = time.Date(2026, 11, 24, 0, 0, 0, 0, time.UTC)
	thursday = time.Date(2026, 11, 26, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 11, 28, 0, 0, 0, 0, time.UTC)
)

func TestIsServiceDay_WeekdayFallback(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
	assert.False(t, svc.IsServiceDay(context.Background(), saturday))
}

func TestIsServiceDay_HolidayClosesOpenWeekday(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{Date: tuesday, Kind: models.ExceptionKindHoliday, IsServiceDay: false, Recurrence: models.RecurrenceNone},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.False(t, svc.IsServiceDay(context.Background(), tuesday))
}

func TestIsServiceDay_SpecialEventBeatsHoliday(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{Date: tuesday, Kind: models.ExceptionKindHoliday, IsServiceDay: false, Recurrence: models.RecurrenceNone},
		{Date: tuesday, Kind: models.ExceptionKindSpecialEvent, IsServiceDay: true, Recurrence: models.RecurrenceNone},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
}

func TestIsServiceDay_SpecialEventOpensClosedSaturday(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{Date: saturday, Kind: models.ExceptionKindSpecialEvent, IsServiceDay: true, Recurrence: models.RecurrenceNone},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), saturday))
}

func TestIsServiceDay_AnnualRecurrenceAppliesAcrossYears(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	// Исключение заведено в 2020 году, дата запроса — 2026.
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{
			Date:         time.Date(2020, 11, 24, 0, 0, 0, 0, time.UTC),
			Kind:         models.ExceptionKindHoliday,
			IsServiceDay: false,
			Recurrence:   models.RecurrenceAnnual,
		},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.False(t, svc.IsServiceDay(context.Background(), tuesday))
}

func TestIsServiceDay_FloatingRuleApplies(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{
			Date:           time.Date(2019, 11, 28, 0, 0, 0, 0, time.UTC),
			Kind:           models.ExceptionKindHoliday,
			IsServiceDay:   false,
			Recurrence:     models.RecurrenceFloating,
			RecurrenceRule: "4th Thursday of November",
		},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	// 2026-11-26 — четвёртый четверг ноября.
	assert.False(t, svc.IsServiceDay(context.Background(), thursday))
	// Обычный вторник той же недели правило не задевает.
	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
}

func TestIsServiceDay_MalformedFloatingRuleIsSkipped(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{
		{
			Date:           thursday,
			Kind:           models.ExceptionKindHoliday,
			IsServiceDay:   false,
			Recurrence:     models.RecurrenceFloating,
			RecurrenceRule: "whenever we feel like it",
		},
	}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), thursday))
}

func TestIsServiceDay_FailsOpenToWeekdayRule(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(nil, errors.New("connection refused"))
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	svc := New(repo, nil, newNoopLogger(), []int{1, 2, 3, 4, 5}, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
	assert.False(t, svc.IsServiceDay(context.Background(), saturday))
}

func TestIsServiceDay_DegradedUsesLastKnownPattern(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil).Once()
	repo.On("GetServicePattern", mock.Anything).Return(nil, errors.New("connection refused"))
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{}, nil).Once()
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	// Дефолт суббота, настоящий шаблон будни: после первого успешного чтения
	// деградация должна пользоваться настоящим шаблоном, а не дефолтом.
	svc := New(repo, nil, newNoopLogger(), []int{6}, 7)

	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
	assert.True(t, svc.IsServiceDay(context.Background(), tuesday))
	assert.False(t, svc.IsServiceDay(context.Background(), saturday))
}

func TestNextServiceDay_FindsFollowingMonday(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(weekdayPattern, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	// После пятницы 2026-11-27 следующий рабочий день — понедельник 2026-11-30.
	next, err := svc.NextServiceDay(context.Background(), time.Date(2026, 11, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), next)
}

func TestNextServiceDay_BoundedSearch(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetServicePattern", mock.Anything).Return(&models.ServicePattern{}, nil)
	repo.On("ListExceptionsForDate", mock.Anything, mock.Anything).Return([]*models.ServiceException{}, nil)

	svc := New(repo, nil, newNoopLogger(), nil, 7)

	_, err := svc.NextServiceDay(context.Background(), tuesday)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoServiceDay)
	repo.AssertNumberOfCalls(t, "ListExceptionsForDate", 7)
}
