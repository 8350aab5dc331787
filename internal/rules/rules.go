// Package rules maps ledger actions to wallet deltas and ledger entries.
// Nothing here touches storage; callers load state, evaluate, then persist
// the returned Mutation inside their own transaction.
package rules

import (
	"fmt"

	"viewearn/internal/domain"
)

// Wallet is the aggregate snapshot the rules evaluate against.
type Wallet struct {
	Coins          int64
	Balance        int64
	TotalEarned    int64
	TotalWithdrawn int64
}

// Delta is a signed change to a Wallet. Earned and Withdrawn only grow.
type Delta struct {
	Coins     int64
	Balance   int64
	Earned    int64
	Withdrawn int64
}

// Apply returns w with d applied, or a typed rejection if any field would
// go negative or an accumulator would shrink.
func (d Delta) Apply(w Wallet) (Wallet, error) {
	if d.Earned < 0 || d.Withdrawn < 0 {
		return w, domain.ErrInvalidAmount
	}
	next := Wallet{
		Coins:          w.Coins + d.Coins,
		Balance:        w.Balance + d.Balance,
		TotalEarned:    w.TotalEarned + d.Earned,
		TotalWithdrawn: w.TotalWithdrawn + d.Withdrawn,
	}
	if next.Coins < 0 {
		return w, domain.ErrInsufficientCoins
	}
	if next.Balance < 0 {
		return w, domain.ErrInsufficientBalance
	}
	return next, nil
}

// CoinEntry becomes one coin_transactions row.
type CoinEntry struct {
	Amount      int64
	Type        string
	Description string
}

// EarningEntry becomes one earnings row.
type EarningEntry struct {
	Amount      int64
	Type        string
	ReferenceID string
}

// Mutation is everything one action writes for one user.
type Mutation struct {
	Delta    Delta
	Coins    []CoinEntry
	Earnings []EarningEntry
}

func (m Mutation) Apply(w Wallet) (Wallet, error) {
	return m.Delta.Apply(w)
}

func credit(amount int64, earningType, ref string) Mutation {
	return Mutation{
		Delta:    Delta{Balance: amount, Earned: amount},
		Earnings: []EarningEntry{{Amount: amount, Type: earningType, ReferenceID: ref}},
	}
}

func coinCredit(amount int64, txType, desc string) Mutation {
	return Mutation{
		Delta: Delta{Coins: amount},
		Coins: []CoinEntry{{Amount: amount, Type: txType, Description: desc}},
	}
}

// merge combines two mutations for the same user.
func merge(a, b Mutation) Mutation {
	return Mutation{
		Delta: Delta{
			Coins:     a.Delta.Coins + b.Delta.Coins,
			Balance:   a.Delta.Balance + b.Delta.Balance,
			Earned:    a.Delta.Earned + b.Delta.Earned,
			Withdrawn: a.Delta.Withdrawn + b.Delta.Withdrawn,
		},
		Coins:    append(append([]CoinEntry{}, a.Coins...), b.Coins...),
		Earnings: append(append([]EarningEntry{}, a.Earnings...), b.Earnings...),
	}
}

func VideoView(videoID uint) Mutation {
	return credit(domain.VideoViewReward, domain.EarningVideoWatch, fmt.Sprint(videoID))
}

// AdSplit divides an ad's per-view earning. The viewer gets the floor of
// their percentage; the creator gets the remainder, or nothing when the
// video has no owner.
func AdSplit(earningPerView int64, hasCreator bool) (viewer, creator int64) {
	if earningPerView <= 0 {
		return 0, 0
	}
	viewer = earningPerView * domain.AdViewerSharePercent / 100
	if hasCreator {
		creator = earningPerView - viewer
	}
	return viewer, creator
}

// AdView credits a share of an ad view. A zero amount yields an empty Mutation.
func AdView(adID uint, amount int64) Mutation {
	if amount <= 0 {
		return Mutation{}
	}
	return credit(amount, domain.EarningAdView, fmt.Sprint(adID))
}

func Referral(referredUserID uint) Mutation {
	return credit(domain.ReferralReward, domain.EarningReferral, fmt.Sprint(referredUserID))
}

// Convert turns coins into currency at CoinsPerRupee. Only whole units are
// converted; the remainder stays in the wallet.
func Convert(w Wallet, requested int64, ref string) (Mutation, error) {
	if requested < domain.MinConvertCoins {
		return Mutation{}, domain.ErrBelowMinimum
	}
	if requested > w.Coins {
		return Mutation{}, domain.ErrInsufficientCoins
	}
	rupees := requested / domain.CoinsPerRupee
	if rupees <= 0 {
		return Mutation{}, domain.ErrBelowMinimum
	}
	used := rupees * domain.CoinsPerRupee
	m := Mutation{
		Delta: Delta{Coins: -used, Balance: rupees, Earned: rupees},
		Coins: []CoinEntry{{
			Amount:      -used,
			Type:        domain.CoinTxConverted,
			Description: fmt.Sprintf("Converted %d coins to %d", used, rupees),
		}},
		Earnings: []EarningEntry{{Amount: rupees, Type: domain.EarningCoinConversion, ReferenceID: ref}},
	}
	if _, err := m.Apply(w); err != nil {
		return Mutation{}, err
	}
	return m, nil
}

func Purchase(w Wallet, rewardName string, coinPrice int64) (Mutation, error) {
	if coinPrice < 0 {
		return Mutation{}, domain.ErrInvalidAmount
	}
	if w.Coins < coinPrice {
		return Mutation{}, domain.ErrInsufficientCoins
	}
	return Mutation{
		Delta: Delta{Coins: -coinPrice},
		Coins: []CoinEntry{{Amount: -coinPrice, Type: domain.CoinTxSpent, Description: "Purchased " + rewardName}},
	}, nil
}

func StreakBonus(streakCount int, bonusCoins int64) Mutation {
	return coinCredit(bonusCoins, domain.CoinTxBonus, fmt.Sprintf("%d-day login streak bonus", streakCount))
}

func MilestoneBonus(m domain.Milestone) Mutation {
	return coinCredit(m.Coins, domain.CoinTxBonus, fmt.Sprintf("Referral milestone: %d tasks", m.Threshold))
}

// TaskReward credits a claimed task's currency and, if any, its coins.
func TaskReward(taskID uint, title string, amount, coins int64) Mutation {
	var m Mutation
	if amount > 0 {
		m = credit(amount, domain.EarningDailyTask, fmt.Sprint(taskID))
	}
	if coins > 0 {
		m = merge(m, coinCredit(coins, domain.CoinTxEarned, "Task reward: "+title))
	}
	return m
}

// Withdraw debits the balance for an approved withdrawal. The withdrawal
// request row is the ledger record, so no entries are produced.
func Withdraw(w Wallet, amount int64) (Mutation, error) {
	if amount <= 0 {
		return Mutation{}, domain.ErrInvalidAmount
	}
	if amount > w.Balance {
		return Mutation{}, domain.ErrInsufficientBalance
	}
	return Mutation{Delta: Delta{Balance: -amount, Withdrawn: amount}}, nil
}

// CanRequestWithdrawal checks a new request against the current balance.
func CanRequestWithdrawal(w Wallet, amount int64) error {
	_, err := Withdraw(w, amount)
	return err
}

// MilestonesCrossed returns the milestones passed when a count moves from
// before to after.
func MilestonesCrossed(before, after int64) []domain.Milestone {
	var out []domain.Milestone
	for _, m := range domain.ReferralMilestones {
		if before < m.Threshold && after >= m.Threshold {
			out = append(out, m)
		}
	}
	return out
}

// ConvertPreview is what a conversion of requested coins would produce,
// without validating against a wallet. Used for display.
func ConvertPreview(requested int64) (rupees, used int64) {
	if requested <= 0 {
		return 0, 0
	}
	rupees = requested / domain.CoinsPerRupee
	return rupees, rupees * domain.CoinsPerRupee
}
