package repository

import (
	"viewearn/internal/domain"
	"viewearn/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalWallets       int64 `json:"total_wallets"`
	CoinsOutstanding   int64 `json:"coins_outstanding"`
	BalanceOutstanding int64 `json:"balance_outstanding"`
	TotalEarned        int64 `json:"total_earned"`
	TotalWithdrawn     int64 `json:"total_withdrawn"`
	PendingWithdrawals int64 `json:"pending_withdrawals"`
	PendingAmount      int64 `json:"pending_amount"`
	TotalReferrals     int64 `json:"total_referrals"`
	RewardsSold        int64 `json:"rewards_sold"`
}

type AmountPoint struct {
	Date   string `json:"date"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats() (*DashboardStats, error) {
	var s DashboardStats
	var totals struct {
		Wallets   int64
		Coins     int64
		Balance   int64
		Earned    int64
		Withdrawn int64
	}
	err := r.db.Model(&models.Wallet{}).
		Select("COUNT(*) AS wallets, COALESCE(SUM(coins), 0) AS coins, COALESCE(SUM(balance), 0) AS balance, " +
			"COALESCE(SUM(total_earned), 0) AS earned, COALESCE(SUM(total_withdrawn), 0) AS withdrawn").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	s.TotalWallets = totals.Wallets
	s.CoinsOutstanding = totals.Coins
	s.BalanceOutstanding = totals.Balance
	s.TotalEarned = totals.Earned
	s.TotalWithdrawn = totals.Withdrawn

	var pending struct {
		N      int64
		Amount int64
	}
	err = r.db.Model(&models.WithdrawalRequest{}).
		Select("COUNT(*) AS n, COALESCE(SUM(amount), 0) AS amount").
		Where("status = ?", domain.WithdrawalPending).
		Scan(&pending).Error
	if err != nil {
		return nil, err
	}
	s.PendingWithdrawals = pending.N
	s.PendingAmount = pending.Amount

	r.db.Model(&models.Referral{}).Count(&s.TotalReferrals)
	r.db.Model(&models.UserReward{}).Count(&s.RewardsSold)
	return &s, nil
}

// ListCoinTransactions returns coin ledger entries across users with optional type filter.
func (r *AdminRepository) ListCoinTransactions(txType string, page, limit int) ([]models.CoinTransaction, int64, error) {
	q := r.db.Model(&models.CoinTransaction{})
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	var total int64
	q.Count(&total)
	var list []models.CoinTransaction
	err := q.Order("id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// ListReferrals returns all referrals, newest first.
func (r *AdminRepository) ListReferrals(page, limit int) ([]models.Referral, int64, error) {
	var total int64
	r.db.Model(&models.Referral{}).Count(&total)
	var list []models.Referral
	err := r.db.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// EarningsByDay sums currency earnings of one type per day key, starting at since (YYYY-MM-DD).
func (r *AdminRepository) EarningsByDay(earningType, since string) ([]AmountPoint, error) {
	var points []AmountPoint
	err := r.db.Model(&models.Earning{}).
		Select("day_key AS date, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("type = ? AND day_key >= ?", earningType, since).
		Group("day_key").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}
