package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewearn/internal/domain"
)

func TestDeltaApply_RejectsNegative(t *testing.T) {
	w := Wallet{Coins: 10, Balance: 5}

	_, err := Delta{Coins: -11}.Apply(w)
	assert.ErrorIs(t, err, domain.ErrInsufficientCoins)

	_, err = Delta{Balance: -6}.Apply(w)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = Delta{Earned: -1}.Apply(w)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	next, err := Delta{Coins: -10, Balance: -5, Withdrawn: 5}.Apply(w)
	require.NoError(t, err)
	assert.Equal(t, Wallet{TotalWithdrawn: 5}, next)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name       string
		coins      int64
		requested  int64
		wantErr    error
		wantRupees int64
		wantUsed   int64
	}{
		{name: "truncates to whole units", coins: 2000, requested: 1050, wantRupees: 105, wantUsed: 1050},
		{name: "exact", coins: 150, requested: 150, wantRupees: 15, wantUsed: 150},
		{name: "remainder stays", coins: 500, requested: 109, wantRupees: 10, wantUsed: 100},
		{name: "below minimum with enough coins", coins: 500, requested: 99, wantErr: domain.ErrBelowMinimum},
		{name: "negative", coins: 500, requested: -100, wantErr: domain.ErrBelowMinimum},
		{name: "more than wallet", coins: 120, requested: 130, wantErr: domain.ErrInsufficientCoins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Convert(Wallet{Coins: tt.coins}, tt.requested, "ref")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, -tt.wantUsed, m.Delta.Coins)
			assert.Equal(t, tt.wantRupees, m.Delta.Balance)
			assert.Equal(t, tt.wantRupees, m.Delta.Earned)
			require.Len(t, m.Coins, 1)
			assert.Equal(t, domain.CoinTxConverted, m.Coins[0].Type)
			assert.Equal(t, -tt.wantUsed, m.Coins[0].Amount)
			require.Len(t, m.Earnings, 1)
			assert.Equal(t, domain.EarningCoinConversion, m.Earnings[0].Type)

			rupees, used := ConvertPreview(tt.requested)
			assert.Equal(t, tt.wantRupees, rupees)
			assert.Equal(t, tt.wantUsed, used)
		})
	}
}

func TestAdSplit(t *testing.T) {
	viewer, creator := AdSplit(10, true)
	assert.Equal(t, int64(3), viewer)
	assert.Equal(t, int64(7), creator)

	viewer, creator = AdSplit(7, true)
	assert.Equal(t, int64(2), viewer)
	assert.Equal(t, int64(5), creator)

	viewer, creator = AdSplit(10, false)
	assert.Equal(t, int64(3), viewer)
	assert.Zero(t, creator)

	viewer, creator = AdSplit(0, true)
	assert.Zero(t, viewer)
	assert.Zero(t, creator)
}

func TestPurchase(t *testing.T) {
	_, err := Purchase(Wallet{Coins: 99}, "Sticker", 100)
	assert.ErrorIs(t, err, domain.ErrInsufficientCoins)

	m, err := Purchase(Wallet{Coins: 100}, "Sticker", 100)
	require.NoError(t, err)
	next, err := m.Apply(Wallet{Coins: 100})
	require.NoError(t, err)
	assert.Zero(t, next.Coins)
	assert.Equal(t, domain.CoinTxSpent, m.Coins[0].Type)
}

func TestWithdraw(t *testing.T) {
	_, err := Withdraw(Wallet{Balance: 50}, 51)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = Withdraw(Wallet{Balance: 50}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	m, err := Withdraw(Wallet{Balance: 50, TotalEarned: 50}, 50)
	require.NoError(t, err)
	next, err := m.Apply(Wallet{Balance: 50, TotalEarned: 50})
	require.NoError(t, err)
	assert.Equal(t, Wallet{TotalEarned: 50, TotalWithdrawn: 50}, next)
	assert.Empty(t, m.Coins)
	assert.Empty(t, m.Earnings)
}

func TestTaskReward(t *testing.T) {
	m := TaskReward(3, "Watch 5 videos", 10, 25)
	assert.Equal(t, Delta{Coins: 25, Balance: 10, Earned: 10}, m.Delta)
	require.Len(t, m.Earnings, 1)
	assert.Equal(t, domain.EarningDailyTask, m.Earnings[0].Type)
	assert.Equal(t, "3", m.Earnings[0].ReferenceID)
	require.Len(t, m.Coins, 1)
	assert.Equal(t, domain.CoinTxEarned, m.Coins[0].Type)

	m = TaskReward(4, "Check in", 5, 0)
	assert.Empty(t, m.Coins)
}

func TestVideoViewAndReferral(t *testing.T) {
	m := VideoView(42)
	assert.Equal(t, Delta{Balance: domain.VideoViewReward, Earned: domain.VideoViewReward}, m.Delta)
	assert.Equal(t, "42", m.Earnings[0].ReferenceID)

	m = Referral(7)
	assert.Equal(t, domain.ReferralReward, m.Delta.Balance)
	assert.Equal(t, domain.EarningReferral, m.Earnings[0].Type)
}

func TestMilestonesCrossed(t *testing.T) {
	assert.Empty(t, MilestonesCrossed(8, 9))
	got := MilestonesCrossed(9, 10)
	require.Len(t, got, 1)
	assert.Equal(t, int64(50), got[0].Coins)
	assert.Empty(t, MilestonesCrossed(10, 11))
	assert.Len(t, MilestonesCrossed(0, 50), 3)
}
