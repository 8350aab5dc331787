package service

import (
	"context"
	"errors"

	"viewearn/internal/domain"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/rules"
)

// Wallet returns the user's wallet, or an empty one if none exists yet.
func (s *LedgerService) Wallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	w, err := s.store.FindWallet(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &models.Wallet{UserID: userID}, nil
	}
	return w, err
}

func (s *LedgerService) CoinTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.CoinTransaction, error) {
	return s.store.ListCoinTransactions(ctx, userID, limit, offset)
}

func (s *LedgerService) Earnings(ctx context.Context, userID uint, limit, offset int) ([]models.Earning, error) {
	return s.store.ListEarnings(ctx, userID, limit, offset)
}

func (s *LedgerService) Streak(ctx context.Context, userID uint) (*models.UserStreak, error) {
	st, err := s.store.FindStreak(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &models.UserStreak{UserID: userID}, nil
	}
	return st, err
}

type TaskView struct {
	models.DailyTask
	Progress int64 `json:"progress"`
	Eligible bool  `json:"eligible"`
	Claimed  bool  `json:"claimed"`
}

// Tasks lists today's active tasks with server-side progress.
func (s *LedgerService) Tasks(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := s.store.ListActiveTasks(ctx)
	if err != nil {
		return nil, err
	}
	days := s.clock.Days()
	out := make([]TaskView, 0, len(tasks))
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockExistingWallet(userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		p, err := progress(tx, userID, days.Today, days.Yesterday)
		if err != nil {
			return err
		}
		done, err := tx.ListTaskCompletions(userID, days.Today)
		if err != nil {
			return err
		}
		claimed := make(map[uint]bool, len(done))
		for _, c := range done {
			claimed[c.TaskID] = c.RewardClaimed
		}
		for _, t := range tasks {
			v := TaskView{DailyTask: t, Claimed: claimed[t.ID]}
			n, err := rules.CheckTask(t.Kind, p, t.Target)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			v.Progress = n
			v.Eligible = err == nil
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (s *LedgerService) Rewards(ctx context.Context) ([]models.Reward, error) {
	return s.store.ListRewards(ctx)
}

func (s *LedgerService) OwnedRewards(ctx context.Context, userID uint) ([]models.UserReward, error) {
	return s.store.ListUserRewards(ctx, userID)
}

func (s *LedgerService) Withdrawals(ctx context.Context, userID uint, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.store.ListWithdrawals(ctx, userID, limit, offset)
}

func (s *LedgerService) WithdrawalsByStatus(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.store.ListWithdrawalsByStatus(ctx, status, limit, offset)
}

type Reconciliation struct {
	UserID    uint  `json:"user_id"`
	Coins     int64 `json:"coins"`
	LedgerSum int64 `json:"ledger_sum"`
	Balanced  bool  `json:"balanced"`
}

// Reconcile compares the wallet's coins with the sum of its coin ledger.
// Both are read under the wallet lock so no writer can land in between. A
// user without a wallet reconciles against zero coins and gets no wallet.
func (s *LedgerService) Reconcile(ctx context.Context, userID uint) (*Reconciliation, error) {
	out := Reconciliation{UserID: userID}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		w, err := tx.LockExistingWallet(userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			w = &models.Wallet{UserID: userID}
		case err != nil:
			return err
		}
		sum, err := tx.SumCoinTransactions(userID)
		if err != nil {
			return err
		}
		out.Coins = w.Coins
		out.LedgerSum = sum
		out.Balanced = w.Coins == sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
