package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"viewearn/internal/domain"
)

func TestCheckTask(t *testing.T) {
	p := Progress{WatchesToday: 3, Referrals: 1, CurrentStreak: 7}

	got, err := CheckTask(KindWatchVideos, p, 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), got)

	got, err = CheckTask(KindWatchVideos, p, 5)
	assert.ErrorIs(t, err, domain.ErrNotEligible)
	assert.Equal(t, int64(3), got)

	_, err = CheckTask(KindReferFriends, p, 2)
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = CheckTask(KindLoginStreak, p, 7)
	assert.NoError(t, err)

	_, err = CheckTask(KindDailyLogin, p, 1)
	assert.ErrorIs(t, err, domain.ErrNotEligible)
	p.CheckedInToday = true
	_, err = CheckTask(KindDailyLogin, p, 1)
	assert.NoError(t, err)

	_, err = CheckTask("share_video", p, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskKinds(t *testing.T) {
	assert.Equal(t, []string{KindDailyLogin, KindLoginStreak, KindReferFriends, KindWatchVideos}, TaskKinds())
}
