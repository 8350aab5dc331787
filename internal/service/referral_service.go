package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"viewearn/internal/domain"
	"viewearn/internal/models"
)

type ReferralCodes interface {
	GetOrCreateCode(ctx context.Context, userID uint) (*models.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*models.ReferralCode, error)
	ListByReferrerID(ctx context.Context, referrerID uint, limit, offset int) ([]models.Referral, error)
}

// ReferralService resolves invite codes and hands the join to the ledger.
type ReferralService struct {
	codes  ReferralCodes
	ledger *LedgerService
	log    *zap.Logger
}

func NewReferralService(codes ReferralCodes, ledger *LedgerService, log *zap.Logger) *ReferralService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReferralService{codes: codes, ledger: ledger, log: log}
}

func (s *ReferralService) MyCode(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	return s.codes.GetOrCreateCode(ctx, userID)
}

func (s *ReferralService) MyReferrals(ctx context.Context, userID uint, limit, offset int) ([]models.Referral, error) {
	return s.codes.ListByReferrerID(ctx, userID, limit, offset)
}

// ProcessReferralCode records that newUserID joined with code and credits
// the code's owner.
func (s *ReferralService) ProcessReferralCode(ctx context.Context, code string, newUserID uint) (*models.Referral, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrNotFound
	}
	rc, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	ref, err := s.ledger.RecordReferral(ctx, rc.UserID, newUserID)
	if err != nil {
		return nil, err
	}
	s.log.Info("[Referral] joined", zap.Uint("referrer_id", rc.UserID), zap.Uint("referred_user_id", newUserID))
	return ref, nil
}
