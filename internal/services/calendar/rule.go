package calendar

import (
	"fmt"
	"strings"
	"time"
)

// FloatingRule — разобранное ежегодное правило вида "4th Thursday of November".
// Ordinal = -1 означает "last".
type FloatingRule struct {
	Ordinal int
	Weekday time.Weekday
	Month   time.Month
}

var ordinals = map[string]int{
	"1st":  1,
	"2nd":  2,
	"3rd":  3,
	"4th":  4,
	"5th":  5,
	"last": -1,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// ParseFloatingRule разбирает правило формата "<ordinal> <weekday> of <month>",
// например "4th Thursday of November" или "last Friday of December".
func ParseFloatingRule(rule string) (*FloatingRule, error) {
	const op = "calendar.ParseFloatingRule"
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(rule)))
	if len(fields) != 4 || fields[2] != "of" {
		return nil, fmt.Errorf("%s: malformed rule %q", op, rule)
	}
	ordinal, ok := ordinals[fields[0]]
	if !ok {
		return nil, fmt.Errorf("%s: unknown ordinal %q", op, fields[0])
	}
	weekday, ok := weekdays[fields[1]]
	if !ok {
		return nil, fmt.Errorf("%s: unknown weekday %q", op, fields[1])
	}
	month, ok := months[fields[3]]
	if !ok {
		return nil, fmt.Errorf("%s: unknown month %q", op, fields[3])
	}
	return &FloatingRule{Ordinal: ordinal, Weekday: weekday, Month: month}, nil
}

// Resolve возвращает конкретную дату правила в указанном году.
// Для "5th" в месяце без пятого вхождения возвращается ошибка.
func (r *FloatingRule) Resolve(year int) (time.Time, error) {
	const op = "calendar.FloatingRule.Resolve"
	if r.Ordinal == -1 {
		last := time.Date(year, r.Month+1, 0, 0, 0, 0, 0, time.UTC)
		offset := (int(last.Weekday()) - int(r.Weekday) + 7) % 7
		return last.AddDate(0, 0, -offset), nil
	}
	first := time.Date(year, r.Month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
	day := first.AddDate(0, 0, offset+(r.Ordinal-1)*7)
	if day.Month() != r.Month {
		return time.Time{}, fmt.Errorf("%s: no %d occurrence of %s in %s %d",
			op, r.Ordinal, r.Weekday, r.Month, year)
	}
	return day, nil
}
