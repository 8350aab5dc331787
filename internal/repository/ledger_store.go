package repository

import (
	"context"
	"errors"
	"fmt"

	"viewearn/internal/domain"
	"viewearn/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore is the gorm-backed Store. Row locks come from
// SELECT ... FOR UPDATE on wallets, so it needs MySQL/InnoDB or PostgreSQL.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&ledgerTx{db: db})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (s *LedgerStore) FindWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *LedgerStore) ListCoinTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.CoinTransaction, error) {
	var list []models.CoinTransaction
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (s *LedgerStore) ListEarnings(ctx context.Context, userID uint, limit, offset int) ([]models.Earning, error) {
	var list []models.Earning
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (s *LedgerStore) FindStreak(ctx context.Context, userID uint) (*models.UserStreak, error) {
	var st models.UserStreak
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *LedgerStore) ListActiveTasks(ctx context.Context) ([]models.DailyTask, error) {
	var list []models.DailyTask
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&list).Error
	return list, err
}

func (s *LedgerStore) ListRewards(ctx context.Context) ([]models.Reward, error) {
	var list []models.Reward
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("coin_price ASC").Find(&list).Error
	return list, err
}

func (s *LedgerStore) ListUserRewards(ctx context.Context, userID uint) ([]models.UserReward, error) {
	var list []models.UserReward
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Preload("Reward").Order("created_at DESC").Find(&list).Error
	return list, err
}

func (s *LedgerStore) IncrementVideoViews(ctx context.Context, videoID uint) error {
	return s.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", videoID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (s *LedgerStore) IncrementAdViews(ctx context.Context, adID uint) error {
	return s.db.WithContext(ctx).Model(&models.Ad{}).
		Where("id = ?", adID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) lockedWallet(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockWallet locks the user's wallet row, creating it on first use. The
// insert goes first: a locking read on a missing row takes an InnoDB gap
// lock, and two such gap locks followed by two inserts deadlock. A losing
// insert is a no-op that waits on the winner's row lock.
func (t *ledgerTx) LockWallet(userID uint) (*models.Wallet, error) {
	if err := t.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Wallet{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	w, err := t.lockedWallet(userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

func (t *ledgerTx) LockExistingWallet(userID uint) (*models.Wallet, error) {
	w, err := t.lockedWallet(userID)
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (t *ledgerTx) SaveWallet(w *models.Wallet) error {
	return t.db.Model(w).Updates(map[string]interface{}{
		"coins":           w.Coins,
		"balance":         w.Balance,
		"total_earned":    w.TotalEarned,
		"total_withdrawn": w.TotalWithdrawn,
	}).Error
}

func (t *ledgerTx) AddCoinTransaction(ct *models.CoinTransaction) error {
	return t.db.Create(ct).Error
}

func (t *ledgerTx) SumCoinTransactions(userID uint) (int64, error) {
	var sum int64
	err := t.db.Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

func (t *ledgerTx) AddEarning(e *models.Earning) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *ledgerTx) CountEarnings(userID uint, earningType, day string) (int64, error) {
	var n int64
	err := t.db.Model(&models.Earning{}).
		Where("user_id = ? AND type = ? AND day_key = ?", userID, earningType, day).
		Count(&n).Error
	return n, err
}

func (t *ledgerTx) AddCreatorEarning(e *models.CreatorEarning) error {
	return t.db.Create(e).Error
}

func (t *ledgerTx) GetVideo(id uint) (*models.Video, error) {
	var v models.Video
	if err := t.db.First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (t *ledgerTx) GetAd(id uint) (*models.Ad, error) {
	var a models.Ad
	if err := t.db.First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (t *ledgerTx) GetTask(id uint) (*models.DailyTask, error) {
	var task models.DailyTask
	if err := t.db.Where("is_active = ?", true).First(&task, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (t *ledgerTx) GetTaskCompletion(userID, taskID uint, date string) (*models.UserDailyTask, error) {
	var c models.UserDailyTask
	err := t.db.Where("user_id = ? AND task_id = ? AND date = ?", userID, taskID, date).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (t *ledgerTx) ListTaskCompletions(userID uint, date string) ([]models.UserDailyTask, error) {
	var list []models.UserDailyTask
	err := t.db.Where("user_id = ? AND date = ?", userID, date).Find(&list).Error
	return list, err
}

func (t *ledgerTx) SaveTaskCompletion(c *models.UserDailyTask) error {
	return t.db.Save(c).Error
}

func (t *ledgerTx) CountClaimedTasks(userID uint, kind string) (int64, error) {
	var n int64
	err := t.db.Model(&models.UserDailyTask{}).
		Where("user_id = ? AND task_kind = ? AND reward_claimed = ?", userID, kind, true).
		Count(&n).Error
	return n, err
}

func (t *ledgerTx) AddMilestone(m *models.UserMilestone) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *ledgerTx) GetStreak(userID uint) (*models.UserStreak, error) {
	var st models.UserStreak
	if err := t.db.Where("user_id = ?", userID).First(&st).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (t *ledgerTx) SaveStreak(st *models.UserStreak) error {
	return t.db.Save(st).Error
}

func (t *ledgerTx) GetReward(id uint) (*models.Reward, error) {
	var r models.Reward
	if err := t.db.Where("is_active = ?", true).First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (t *ledgerTx) HasUserReward(userID, rewardID uint) (bool, error) {
	var n int64
	err := t.db.Model(&models.UserReward{}).
		Where("user_id = ? AND reward_id = ?", userID, rewardID).Count(&n).Error
	return n > 0, err
}

func (t *ledgerTx) AddUserReward(r *models.UserReward) error {
	return t.db.Omit("Reward").Create(r).Error
}

func (t *ledgerTx) CountReferrals(referrerID uint) (int64, error) {
	var n int64
	err := t.db.Model(&models.Referral{}).Where("referrer_id = ?", referrerID).Count(&n).Error
	return n, err
}

func (t *ledgerTx) AddReferral(r *models.Referral) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
