package fields

import (
	"regexp"
	"strconv"
	"time"
)

// DateStrategy is one named attempt at reading a date.
type DateStrategy struct {
	Name  string
	Parse func(s string) (time.Time, bool)
}

// DateParser tries its strategies in order and keeps the first success.
type DateParser struct {
	strategies []DateStrategy
}

var (
	monthDayRe = regexp.MustCompile(`^(\d+)/(\d+)$`)
	compactRe  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
)

// dateLayouts are tried in order after the month/day shorthand.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"1/2/06",
	"2-Jan-2006",
	"2-Jan-06",
	"2006/1/2",
	"2/1/2006",
	"2/1/06",
}

// NewDateParser returns the default cascade. Bare "M/D" values are placed in
// year.
func NewDateParser(year int) *DateParser {
	return &DateParser{strategies: []DateStrategy{
		MonthDay(year),
		Layouts(dateLayouts...),
		Compact(),
	}}
}

// NewDateParserWith builds a parser from explicit strategies.
func NewDateParserWith(strategies ...DateStrategy) *DateParser {
	return &DateParser{strategies: strategies}
}

// Parse returns the date in s, or false when no strategy accepts it.
func (p *DateParser) Parse(s string) (time.Time, bool) {
	s = clean(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, st := range p.strategies {
		if d, ok := st.Parse(s); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// MonthDay reads "M/D" in the given year.
func MonthDay(year int) DateStrategy {
	return DateStrategy{Name: "month-day", Parse: func(s string) (time.Time, bool) {
		m := monthDayRe.FindStringSubmatch(s)
		if m == nil {
			return time.Time{}, false
		}
		month, err1 := strconv.Atoi(m[1])
		day, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return time.Time{}, false
		}
		return calendarDate(year, month, day)
	}}
}

// Layouts tries each time layout in order.
func Layouts(layouts ...string) DateStrategy {
	return DateStrategy{Name: "layouts", Parse: func(s string) (time.Time, bool) {
		for _, layout := range layouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
		return time.Time{}, false
	}}
}

// Compact reads eight digits as YYYYMMDD.
func Compact() DateStrategy {
	return DateStrategy{Name: "compact", Parse: func(s string) (time.Time, bool) {
		m := compactRe.FindStringSubmatch(s)
		if m == nil {
			return time.Time{}, false
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return calendarDate(year, month, day)
	}}
}

// calendarDate rejects values time.Date would silently normalise.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
