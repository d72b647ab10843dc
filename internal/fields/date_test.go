package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDateParser_Parse(t *testing.T) {
	p := NewDateParser(2024)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1/2", day(2024, 1, 2)},
		{"12/31", day(2024, 12, 31)},
		{"'1/2'", day(2024, 1, 2)},
		{` "3/4" `, day(2024, 3, 4)},
		{"2024-01-02", day(2024, 1, 2)},
		{"01/02/2024", day(2024, 1, 2)},
		{"1/2/2024", day(2024, 1, 2)},
		{"01/02/24", day(2024, 1, 2)},
		{"02-Jan-24", day(2024, 1, 2)},
		{"02-Jan-2024", day(2024, 1, 2)},
		{"2-jan-2024", day(2024, 1, 2)},
		{"2024/01/02", day(2024, 1, 2)},
		{"13/01/2024", day(2024, 1, 13)},
		{"13/01/24", day(2024, 1, 13)},
		{"20240102", day(2024, 1, 2)},
		{"01/02/70", day(1970, 1, 2)},
	}
	for _, tt := range tests {
		got, ok := p.Parse(tt.in)
		require.True(t, ok, "Parse(%q) should succeed", tt.in)
		assert.True(t, tt.want.Equal(got), "Parse(%q) = %s, want %s", tt.in, got, tt.want)
	}
}

func TestDateParser_EquivalentFormsAgree(t *testing.T) {
	p := NewDateParser(2024)
	var dates []time.Time
	for _, s := range []string{"2024-01-02", "01/02/2024", "02-Jan-24", "20240102"} {
		d, ok := p.Parse(s)
		require.True(t, ok, s)
		dates = append(dates, d)
	}
	for _, d := range dates[1:] {
		assert.True(t, dates[0].Equal(d))
	}
}

func TestDateParser_Rejects(t *testing.T) {
	p := NewDateParser(2024)
	for _, s := range []string{
		"",
		"   ",
		"13/45",
		"2/30",
		"0/10",
		"20241301",
		"20240230",
		"2024013",
		"Date",
		"Coffee Shop",
		"12.50",
		"1/2/3/4",
	} {
		_, ok := p.Parse(s)
		assert.False(t, ok, "Parse(%q) should fail", s)
	}
}

func TestDateParser_MonthDayTakesPriority(t *testing.T) {
	// "2/1" would read as 2 January under day/month; month/day wins.
	p := NewDateParser(2023)
	got, ok := p.Parse("2/1")
	require.True(t, ok)
	assert.True(t, day(2023, 2, 1).Equal(got))
}

func TestDateParser_LeapDayDependsOnYear(t *testing.T) {
	_, ok := NewDateParser(2024).Parse("2/29")
	assert.True(t, ok)
	_, ok = NewDateParser(2023).Parse("2/29")
	assert.False(t, ok)
}

func TestDateStrategies_Individually(t *testing.T) {
	md := MonthDay(2024)
	assert.Equal(t, "month-day", md.Name)
	_, ok := md.Parse("2024-01-02")
	assert.False(t, ok)

	compact := Compact()
	d, ok := compact.Parse("20231231")
	require.True(t, ok)
	assert.True(t, day(2023, 12, 31).Equal(d))
	_, ok = compact.Parse("1/2")
	assert.False(t, ok)

	layouts := Layouts("2006-1-2")
	_, ok = layouts.Parse("01/02/2024")
	assert.False(t, ok)
}

func TestNewDateParserWith(t *testing.T) {
	p := NewDateParserWith(Compact())
	_, ok := p.Parse("1/2")
	assert.False(t, ok)
	_, ok = p.Parse("20240102")
	assert.True(t, ok)
}
