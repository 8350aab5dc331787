package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"viewearn/internal/domain"
	"viewearn/internal/models"
)

type MockReferralCodes struct {
	mock.Mock
}

func (m *MockReferralCodes) GetOrCreateCode(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralCode), args.Error(1)
}

func (m *MockReferralCodes) GetByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralCode), args.Error(1)
}

func (m *MockReferralCodes) ListByReferrerID(ctx context.Context, referrerID uint, limit, offset int) ([]models.Referral, error) {
	args := m.Called(ctx, referrerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Referral), args.Error(1)
}

func TestReferralService_ProcessReferralCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		newUserID uint
		setupMock func(*MockReferralCodes)
		wantErr   error
		wantPaid  int64
	}{
		{
			name:      "credits the code owner",
			code:      "  ab12cd34 ",
			newUserID: 9,
			setupMock: func(m *MockReferralCodes) {
				m.On("GetByCode", mock.Anything, "AB12CD34").Return(&models.ReferralCode{UserID: 1, Code: "AB12CD34"}, nil)
			},
			wantPaid: domain.ReferralReward,
		},
		{
			name:      "unknown code",
			code:      "NOPE",
			newUserID: 9,
			setupMock: func(m *MockReferralCodes) {
				m.On("GetByCode", mock.Anything, "NOPE").Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:      "empty code never hits the store",
			code:      "   ",
			newUserID: 9,
			setupMock: func(m *MockReferralCodes) {},
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "own code",
			code:      "AB12CD34",
			newUserID: 1,
			setupMock: func(m *MockReferralCodes) {
				m.On("GetByCode", mock.Anything, "AB12CD34").Return(&models.ReferralCode{UserID: 1, Code: "AB12CD34"}, nil)
			},
			wantErr: domain.ErrSelfReferral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := new(MockReferralCodes)
			tt.setupMock(codes)
			f := newFixture(t)
			svc := NewReferralService(codes, f.svc, nil)

			ref, err := svc.ProcessReferralCode(context.Background(), tt.code, tt.newUserID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ref)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint(1), ref.ReferrerID)
				assert.Equal(t, tt.newUserID, ref.ReferredUserID)
			}
			assert.Equal(t, tt.wantPaid, f.wallet(t, 1).Balance)
			codes.AssertExpectations(t)
		})
	}
}

func TestReferralService_SecondJoinRejected(t *testing.T) {
	codes := new(MockReferralCodes)
	codes.On("GetByCode", mock.Anything, "AAAA1111").Return(&models.ReferralCode{UserID: 1, Code: "AAAA1111"}, nil)
	codes.On("GetByCode", mock.Anything, "BBBB2222").Return(&models.ReferralCode{UserID: 2, Code: "BBBB2222"}, nil)
	f := newFixture(t)
	svc := NewReferralService(codes, f.svc, nil)

	_, err := svc.ProcessReferralCode(context.Background(), "AAAA1111", 5)
	require.NoError(t, err)
	_, err = svc.ProcessReferralCode(context.Background(), "BBBB2222", 5)
	assert.ErrorIs(t, err, domain.ErrAlreadyReferred)

	assert.Equal(t, domain.ReferralReward, f.wallet(t, 1).Balance)
	assert.Zero(t, f.wallet(t, 2).Balance)
	assert.Equal(t, []string{domain.NotifyReferralJoined}, f.notifier.types())
}

func TestReferralService_Passthrough(t *testing.T) {
	codes := new(MockReferralCodes)
	codes.On("GetOrCreateCode", mock.Anything, uint(3)).Return(&models.ReferralCode{UserID: 3, Code: "C7FFEE22"}, nil)
	codes.On("ListByReferrerID", mock.Anything, uint(3), 20, 40).Return([]models.Referral{{ReferrerID: 3, ReferredUserID: 4}}, nil)
	svc := NewReferralService(codes, nil, nil)

	code, err := svc.MyCode(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "C7FFEE22", code.Code)

	refs, err := svc.MyReferrals(context.Background(), 3, 20, 40)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	codes.AssertExpectations(t)
}
