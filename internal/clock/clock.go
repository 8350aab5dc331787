// Package clock supplies the canonical calendar day for streaks, task
// completions and view dedup. All "today" decisions go through it so a
// client's local clock never matters.
package clock

import (
	"time"
	_ "time/tzdata"

	"viewearn/internal/domain"
	"viewearn/internal/rules"
)

type Clock interface {
	Now() time.Time
	Days() rules.Days
}

// Zone reads the system clock in one fixed location.
type Zone struct {
	loc *time.Location
}

func NewZone(name string) (*Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &Zone{loc: loc}, nil
}

func (z *Zone) Now() time.Time { return time.Now().In(z.loc) }

func (z *Zone) Days() rules.Days { return DaysAt(z.Now()) }

// DaysAt derives today/yesterday keys from t in t's own location.
// AddDate works on the calendar, so DST changes do not skew the result.
func DaysAt(t time.Time) rules.Days {
	return rules.Days{
		Today:     t.Format(domain.DateLayout),
		Yesterday: t.AddDate(0, 0, -1).Format(domain.DateLayout),
	}
}

// Fixed always reports the same instant. Used in tests and for replays.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time  { return f.T }
func (f *Fixed) Days() rules.Days { return DaysAt(f.T) }

// Advance moves the fixed clock forward by whole days.
func (f *Fixed) Advance(days int) { f.T = f.T.AddDate(0, 0, days) }
