package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Reward rules. Display and estimation code must read these instead of
// repeating the numbers.
const (
	VideoViewReward int64 = 20  // currency units per first view of a video per day
	ReferralReward  int64 = 100 // currency units to the referrer per referred user

	CoinsPerRupee   int64 = 10
	MinConvertCoins int64 = 100

	StreakBonusDays  = 26
	StreakBonusCoins int64 = 500

	// Share of an ad's per-view earning paid to the viewer, in percent.
	// The video owner receives the remainder.
	AdViewerSharePercent int64 = 30
)

// Milestone is a one-time coin bonus fired when a user's count of claimed
// referral tasks reaches Threshold.
type Milestone struct {
	Threshold int64
	Coins     int64
}

var ReferralMilestones = []Milestone{
	{Threshold: 10, Coins: 50},
	{Threshold: 25, Coins: 150},
	{Threshold: 50, Coins: 500},
}

// Coin transaction types.
const (
	CoinTxEarned    = "earned"
	CoinTxConverted = "converted"
	CoinTxSpent     = "spent"
	CoinTxBonus     = "bonus"
)

// Earning types (currency ledger).
const (
	EarningVideoWatch     = "video_watch"
	EarningAdView         = "ad_view"
	EarningReferral       = "referral"
	EarningDailyTask      = "daily_task"
	EarningCoinConversion = "coin_conversion"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Notification types.
const (
	NotifyWithdrawalApproved = "WITHDRAWAL_APPROVED"
	NotifyWithdrawalRejected = "WITHDRAWAL_REJECTED"
	NotifyStreakBonus        = "STREAK_BONUS"
	NotifyMilestoneBonus     = "MILESTONE_BONUS"
	NotifyReferralJoined     = "REFERRAL_JOINED"
)

// DateLayout is the calendar-day key format used for every "today" comparison.
const DateLayout = "2006-01-02"
