package rules

import (
	"sort"

	"viewearn/internal/domain"
)

const (
	KindWatchVideos  = "watch_videos"
	KindReferFriends = "refer_friends"
	KindLoginStreak  = "login_streak"
	KindDailyLogin   = "daily_login"
)

// Progress is derived from stored facts inside the claim transaction.
type Progress struct {
	WatchesToday   int64
	Referrals      int64
	CurrentStreak  int64
	CheckedInToday bool
}

// TaskKind is one variant of daily task. Metric reports progress toward the
// task's target; Eligible decides whether the reward may be claimed.
type TaskKind struct {
	Name     string
	Metric   func(p Progress) int64
	Eligible func(p Progress, target int64) bool
}

var taskKinds = map[string]TaskKind{}

// RegisterTaskKind adds a kind to the registry. Eligible defaults to
// Metric reaching the target.
func RegisterTaskKind(k TaskKind) {
	if k.Eligible == nil {
		metric := k.Metric
		k.Eligible = func(p Progress, target int64) bool {
			return metric(p) >= target
		}
	}
	taskKinds[k.Name] = k
}

func LookupTaskKind(name string) (TaskKind, bool) {
	k, ok := taskKinds[name]
	return k, ok
}

func TaskKinds() []string {
	names := make([]string, 0, len(taskKinds))
	for name := range taskKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckTask returns the current progress for a task, and ErrNotEligible if
// it cannot be claimed yet.
func CheckTask(kind string, p Progress, target int64) (int64, error) {
	k, ok := LookupTaskKind(kind)
	if !ok {
		return 0, domain.ErrNotFound
	}
	progress := k.Metric(p)
	if !k.Eligible(p, target) {
		return progress, domain.ErrNotEligible
	}
	return progress, nil
}

func init() {
	RegisterTaskKind(TaskKind{
		Name:   KindWatchVideos,
		Metric: func(p Progress) int64 { return p.WatchesToday },
	})
	RegisterTaskKind(TaskKind{
		Name:   KindReferFriends,
		Metric: func(p Progress) int64 { return p.Referrals },
	})
	// A streak that just fired its bonus resets to 0, so login_streak
	// targets should stay below StreakBonusDays.
	RegisterTaskKind(TaskKind{
		Name:   KindLoginStreak,
		Metric: func(p Progress) int64 { return p.CurrentStreak },
	})
	RegisterTaskKind(TaskKind{
		Name: KindDailyLogin,
		Metric: func(p Progress) int64 {
			if p.CheckedInToday {
				return 1
			}
			return 0
		},
		Eligible: func(p Progress, _ int64) bool { return p.CheckedInToday },
	})
}
