package rules

import "viewearn/internal/domain"

type StreakState int

const (
	NoRecord StreakState = iota
	ActiveToday
	Continuing
	Broken
)

func (s StreakState) String() string {
	switch s {
	case NoRecord:
		return "no_record"
	case ActiveToday:
		return "active_today"
	case Continuing:
		return "continuing"
	default:
		return "broken"
	}
}

// Days are the canonical calendar keys (YYYY-MM-DD) for the current check.
type Days struct {
	Today     string
	Yesterday string
}

type Streak struct {
	Current       int
	Longest       int
	LastLoginDate string
}

// StreakTransition is the outcome of one tracker run.
type StreakTransition struct {
	From    StreakState
	Next    Streak
	Changed bool
	// BonusAt is the streak length that fired the bonus, 0 if none fired.
	BonusAt int
}

// ClassifyStreak compares date keys only; no duration arithmetic.
func ClassifyStreak(cur *Streak, days Days) StreakState {
	switch {
	case cur == nil || cur.LastLoginDate == "":
		return NoRecord
	case cur.LastLoginDate == days.Today:
		return ActiveToday
	case cur.LastLoginDate == days.Yesterday:
		return Continuing
	default:
		return Broken
	}
}

// NextStreak runs the daily-login state machine. cur is nil when the user
// has no streak record yet.
func NextStreak(cur *Streak, days Days) StreakTransition {
	from := ClassifyStreak(cur, days)
	var prev Streak
	if cur != nil {
		prev = *cur
	}
	t := StreakTransition{From: from, Next: prev}

	switch from {
	case ActiveToday:
		return t
	case NoRecord, Broken:
		t.Next.Current = 1
	case Continuing:
		t.Next.Current = prev.Current + 1
	}
	if t.Next.Current > t.Next.Longest {
		t.Next.Longest = t.Next.Current
	}
	if t.Next.Current >= domain.StreakBonusDays {
		t.BonusAt = t.Next.Current
		t.Next.Current = 0
	}
	t.Next.LastLoginDate = days.Today
	t.Changed = true
	return t
}
