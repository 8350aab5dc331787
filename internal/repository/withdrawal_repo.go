package repository

import (
	"context"

	"viewearn/internal/models"

	"gorm.io/gorm/clause"
)

func (s *LedgerStore) ListWithdrawals(ctx context.Context, userID uint, limit, offset int) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (s *LedgerStore) ListWithdrawalsByStatus(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.WithdrawalRequest
	err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (s *LedgerStore) FindWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (t *ledgerTx) LockWithdrawal(id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (t *ledgerTx) SaveWithdrawal(w *models.WithdrawalRequest) error {
	return t.db.Save(w).Error
}
