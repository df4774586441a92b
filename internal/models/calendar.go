// Package models содержит доменные структуры сервисного календаря,
// подписок, пропусков, квот и выданных учётных талонов,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Типы исключений сервисного календаря.
const (
	// ExceptionKindHoliday — праздничный день, как правило закрывает выдачу.
	ExceptionKindHoliday = "holiday"
	// ExceptionKindSpecialEvent — специальное событие, его значение
	// перекрывает и недельный шаблон, и праздник на ту же дату.
	ExceptionKindSpecialEvent = "special_event"
)

// Виды повторения исключения календаря.
const (
	// RecurrenceNone — разовое исключение на конкретную дату.
	RecurrenceNone = "none"
	// RecurrenceAnnual — повторяется ежегодно в тот же день и месяц.
	RecurrenceAnnual = "annual"
	// RecurrenceFloating — ежегодное правило вида "4th Thursday of November".
	RecurrenceFloating = "floating"
)

// DateLayout — формат календарной даты в запросах, ответах и ключах.
const DateLayout = "2006-01-02"

// ServicePattern описывает недельный шаблон рабочих дней.
// Хранится единственной записью, редактируется персоналом,
// читается при каждом запросе к календарю.
type ServicePattern struct {
	Weekdays []int // Индексы дней недели 0-6, воскресенье = 0
}

// Contains сообщает, входит ли день недели в шаблон.
func (p ServicePattern) Contains(weekday time.Weekday) bool {
	for _, day := range p.Weekdays {
		if day == int(weekday) {
			return true
		}
	}
	return false
}

// ServiceException описывает одно переопределение календаря.
// На одну дату допускается не больше одного исключения каждого вида.
type ServiceException struct {
	ID             int
	Date           time.Time // Дата исключения; для повторяющихся — исходная дата
	Kind           string    // holiday или special_event
	IsServiceDay   bool      // Значение переопределения
	Recurrence     string    // none, annual или floating
	RecurrenceRule string    // Правило для floating, например "4th Thursday of November"
}

// DummyServiceException используется для приёма исключения из JSON-запроса.
type DummyServiceException struct {
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`                          // Дата в формате 2006-01-02
	Kind           string `json:"kind" validate:"required,oneof=holiday special_event"`                  // Вид исключения
	IsServiceDay   bool   `json:"is_service_day"`                                                        // Рабочий ли день
	Recurrence     string `json:"recurrence,omitempty" validate:"omitempty,oneof=none annual floating"`  // Повторение
	RecurrenceRule string `json:"recurrence_rule,omitempty"`                                             // Правило для floating
}

// DummyServicePattern используется для приёма недельного шаблона из JSON-запроса.
type DummyServicePattern struct {
	Weekdays []int `json:"weekdays" validate:"required,min=1,max=7,dive,gte=0,lte=6"` // Дни недели 0-6
}
