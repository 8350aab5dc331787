package repository

import (
	"context"
	"crypto/rand"
	"errors"

	"viewearn/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// codeAlphabet has 32 symbols so a random byte maps onto it without bias.
// 0/O and 1/I are left out.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength   = 8
	codeAttempts = 10
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a unique referral code")

// ReferralRepository issues invite codes and lists the referrals they produced.
// The referral rows themselves are written by the ledger inside its transaction.
type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func newReferralCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

func (r *ReferralRepository) codeFor(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

// GetOrCreateCode returns the user's code, allocating one on first use.
// An insert that loses on either unique index is a no-op; re-reading by
// user tells a concurrent allocation for the same user apart from a code
// collision, which is retried with a fresh code.
func (r *ReferralRepository) GetOrCreateCode(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	rc, err := r.codeFor(ctx, userID)
	if err == nil {
		return rc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	for range codeAttempts {
		code, err := newReferralCode()
		if err != nil {
			return nil, err
		}
		fresh := &models.ReferralCode{UserID: userID, Code: code, IsActive: true}
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return fresh, nil
		}
		rc, err := r.codeFor(ctx, userID)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrCodeSpaceExhausted
}

func (r *ReferralRepository) GetByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&rc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rc, nil
}

func (r *ReferralRepository) ListByReferrerID(ctx context.Context, referrerID uint, limit, offset int) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
