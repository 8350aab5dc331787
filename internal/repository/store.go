package repository

import (
	"context"

	"viewearn/internal/models"
)

// Store is the ledger's persistence boundary. Every mutation runs inside
// InTx; implementations guarantee that fn's writes commit together or not
// at all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	FindWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	ListCoinTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.CoinTransaction, error)
	ListEarnings(ctx context.Context, userID uint, limit, offset int) ([]models.Earning, error)
	FindStreak(ctx context.Context, userID uint) (*models.UserStreak, error)
	ListActiveTasks(ctx context.Context) ([]models.DailyTask, error)
	ListRewards(ctx context.Context) ([]models.Reward, error)
	ListUserRewards(ctx context.Context, userID uint) ([]models.UserReward, error)
	ListWithdrawals(ctx context.Context, userID uint, limit, offset int) ([]models.WithdrawalRequest, error)
	ListWithdrawalsByStatus(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error)
	FindWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error)

	// IncrementVideoViews and IncrementAdViews are catalog counter bumps.
	// They run after commit, outside any ledger transaction.
	IncrementVideoViews(ctx context.Context, videoID uint) error
	IncrementAdViews(ctx context.Context, adID uint) error
}

// Tx is the view of the store inside one transaction. Every read or write
// of a user's rows must come after LockWallet or LockExistingWallet for
// that user, which serializes all ledger work on the user until commit.
// Catalog reads (GetVideo, GetAd, GetTask, GetReward) take no lock and may
// come first.
type Tx interface {
	// LockWallet creates the wallet on first use.
	LockWallet(userID uint) (*models.Wallet, error)
	// LockExistingWallet never creates a row; a missing wallet is
	// domain.ErrNotFound and the user stays serialized.
	LockExistingWallet(userID uint) (*models.Wallet, error)
	SaveWallet(w *models.Wallet) error

	AddCoinTransaction(t *models.CoinTransaction) error
	SumCoinTransactions(userID uint) (int64, error)
	// AddEarning returns false without error when the earning's DedupKey
	// already exists.
	AddEarning(e *models.Earning) (bool, error)
	CountEarnings(userID uint, earningType, day string) (int64, error)
	AddCreatorEarning(e *models.CreatorEarning) error

	GetVideo(id uint) (*models.Video, error)
	GetAd(id uint) (*models.Ad, error)

	GetTask(id uint) (*models.DailyTask, error)
	GetTaskCompletion(userID, taskID uint, date string) (*models.UserDailyTask, error)
	ListTaskCompletions(userID uint, date string) ([]models.UserDailyTask, error)
	SaveTaskCompletion(c *models.UserDailyTask) error
	CountClaimedTasks(userID uint, kind string) (int64, error)
	// AddMilestone returns false when the (user, threshold) pair exists.
	AddMilestone(m *models.UserMilestone) (bool, error)

	GetStreak(userID uint) (*models.UserStreak, error)
	SaveStreak(s *models.UserStreak) error

	GetReward(id uint) (*models.Reward, error)
	HasUserReward(userID, rewardID uint) (bool, error)
	AddUserReward(r *models.UserReward) error

	CountReferrals(referrerID uint) (int64, error)
	// AddReferral returns false when the referred user already has a referrer.
	AddReferral(r *models.Referral) (bool, error)

	LockWithdrawal(id uint) (*models.WithdrawalRequest, error)
	SaveWithdrawal(w *models.WithdrawalRequest) error
}
