package period

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWindow is the number of months in a DRE report: the report month
// plus the twelve months before it.
const DefaultWindow = 13

// Period is a calendar month.
type Period struct {
	Month int
	Year  int
}

// New returns the period for month/year.
func New(month, year int) Period {
	return Period{Month: month, Year: year}
}

// Validate checks the month and year ranges.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("invalid month %d: must be between 1 and 12", p.Month)
	}
	if p.Year < 1 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	return nil
}

// Key returns a period key like "03-2024".
func (p Period) Key() string {
	return fmt.Sprintf("%02d-%04d", p.Month, p.Year)
}

func (p Period) String() string {
	return p.Key()
}

// ParseKey parses "03-2024" (or "3-2024") into a Period.
func ParseKey(key string) (Period, error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period key format: %q", key)
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid month in period key %q: %w", key, err)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid year in period key %q: %w", key, err)
	}

	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, fmt.Errorf("period key %q: %w", key, err)
	}
	return p, nil
}

// AddMonths returns p shifted by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	y, m := idx/12, idx%12
	if m < 0 {
		m += 12
		y--
	}
	return Period{Month: m + 1, Year: y}
}

// Next returns the following month.
func (p Period) Next() Period { return p.AddMonths(1) }

// Prev returns the preceding month.
func (p Period) Prev() Period { return p.AddMonths(-1) }

// Before reports whether p is chronologically before q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// MarshalText encodes the period as its key, so periods serialize as
// "03-2024" in JSON documents and map keys.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.Key()), nil
}

// UnmarshalText parses a period key.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
