package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"viewearn/internal/domain"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/rules"
)

type Conversion struct {
	Reference string        `json:"reference"`
	CoinsUsed int64         `json:"coins_used"`
	Amount    int64         `json:"amount"`
	Wallet    models.Wallet `json:"wallet"`
}

// ConvertCoins converts whole multiples of CoinsPerRupee from the requested
// coins. Any remainder below one unit stays in the wallet.
func (s *LedgerService) ConvertCoins(ctx context.Context, userID uint, coins int64) (*Conversion, error) {
	days := s.clock.Days()
	out := Conversion{Reference: "cv-" + uuid.New().String()}
	err := s.run(ctx, "convert", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		m, err := rules.Convert(toRules(w), coins, out.Reference)
		if err != nil {
			return err
		}
		if err := s.persist(tx, w, m, days.Today, fx); err != nil {
			return err
		}
		out.CoinsUsed = -m.Delta.Coins
		out.Amount = m.Delta.Balance
		out.Wallet = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type Purchase struct {
	Reward models.Reward `json:"reward"`
	Wallet models.Wallet `json:"wallet"`
}

// PurchaseReward buys a shop item. Ownership is unique per user and reward.
func (s *LedgerService) PurchaseReward(ctx context.Context, userID, rewardID uint) (*Purchase, error) {
	days := s.clock.Days()
	var out Purchase
	err := s.run(ctx, "purchase", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		reward, err := tx.GetReward(rewardID)
		if err != nil {
			return err
		}
		owned, err := tx.HasUserReward(userID, rewardID)
		if err != nil {
			return err
		}
		if owned {
			return domain.ErrAlreadyOwned
		}
		m, err := rules.Purchase(toRules(w), reward.Name, reward.CoinPrice)
		if err != nil {
			return err
		}
		if err := s.persist(tx, w, m, days.Today, fx); err != nil {
			return err
		}
		if err := tx.AddUserReward(&models.UserReward{UserID: userID, RewardID: rewardID}); err != nil {
			return err
		}
		out.Reward = *reward
		out.Wallet = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type BankDetails struct {
	AccountHolder string
	AccountNumber string
	IFSCCode      string
	BankName      string
}

// RequestWithdrawal files a pending request. The balance is checked now and
// again on approval; nothing is debited until then.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID uint, amount int64, bank BankDetails) (*models.WithdrawalRequest, error) {
	var out models.WithdrawalRequest
	err := s.run(ctx, "withdrawal_request", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		if err := rules.CanRequestWithdrawal(toRules(w), amount); err != nil {
			return err
		}
		req := &models.WithdrawalRequest{
			UserID:        userID,
			Reference:     "wd-" + uuid.New().String(),
			Amount:        amount,
			AccountHolder: bank.AccountHolder,
			AccountNumber: bank.AccountNumber,
			IFSCCode:      bank.IFSCCode,
			BankName:      bank.BankName,
			Status:        domain.WithdrawalPending,
		}
		if err := tx.SaveWithdrawal(req); err != nil {
			return err
		}
		out = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[Withdrawal] requested", zap.Uint("user_id", userID), zap.Int64("amount", amount), zap.String("reference", out.Reference))
	return &out, nil
}

// ProcessWithdrawal debits an approved amount from the balance. The balance
// is re-read under lock; the amount on file is not trusted.
func (s *LedgerService) ProcessWithdrawal(ctx context.Context, userID uint, amount int64) (*models.Wallet, error) {
	days := s.clock.Days()
	var out models.Wallet
	err := s.run(ctx, "withdrawal_process", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		if err := s.processWithdrawal(tx, w, amount, days.Today, fx); err != nil {
			return err
		}
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *LedgerService) processWithdrawal(tx repository.Tx, w *models.Wallet, amount int64, day string, fx *effects) error {
	m, err := rules.Withdraw(toRules(w), amount)
	if err != nil {
		return err
	}
	return s.persist(tx, w, m, day, fx)
}

// lockPendingWithdrawal locks the owner's wallet, then the request, and
// checks it can still move.
func lockPendingWithdrawal(tx repository.Tx, userID, id uint) (*models.Wallet, *models.WithdrawalRequest, error) {
	w, err := tx.LockWallet(userID)
	if err != nil {
		return nil, nil, err
	}
	req, err := tx.LockWithdrawal(id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != domain.WithdrawalPending {
		return nil, nil, domain.ErrWithdrawalNotPending
	}
	return w, req, nil
}

// ApproveWithdrawal debits the balance and marks the request approved in one
// transaction. If the balance no longer covers it, the request stays pending.
func (s *LedgerService) ApproveWithdrawal(ctx context.Context, id uint, notes string) (*models.WithdrawalRequest, error) {
	pre, err := s.store.FindWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	days := s.clock.Days()
	var out models.WithdrawalRequest
	err = s.run(ctx, "withdrawal_approve", func(tx repository.Tx, fx *effects) error {
		w, req, err := lockPendingWithdrawal(tx, pre.UserID, id)
		if err != nil {
			return err
		}
		if err := s.processWithdrawal(tx, w, req.Amount, days.Today, fx); err != nil {
			return err
		}
		now := s.clock.Now()
		req.Status = domain.WithdrawalApproved
		req.AdminNotes = notes
		req.ProcessedAt = &now
		if err := tx.SaveWithdrawal(req); err != nil {
			return err
		}
		fx.notify(notice{
			userID: req.UserID,
			kind:   domain.NotifyWithdrawalApproved,
			title:  "Withdrawal approved",
			body:   fmt.Sprintf("Your withdrawal of %d has been approved", req.Amount),
			data:   map[string]interface{}{"withdrawal_id": req.ID, "amount": req.Amount},
		})
		out = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[Withdrawal] approved", zap.Uint("id", id), zap.Uint("user_id", out.UserID), zap.Int64("amount", out.Amount))
	return &out, nil
}

// RejectWithdrawal closes a pending request without touching the balance.
func (s *LedgerService) RejectWithdrawal(ctx context.Context, id uint, notes string) (*models.WithdrawalRequest, error) {
	pre, err := s.store.FindWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	var out models.WithdrawalRequest
	err = s.run(ctx, "withdrawal_reject", func(tx repository.Tx, fx *effects) error {
		w, req, err := lockPendingWithdrawal(tx, pre.UserID, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		req.Status = domain.WithdrawalRejected
		req.AdminNotes = notes
		req.ProcessedAt = &now
		if err := tx.SaveWithdrawal(req); err != nil {
			return err
		}
		fx.wallets[w.UserID] = *w
		fx.notify(notice{
			userID: req.UserID,
			kind:   domain.NotifyWithdrawalRejected,
			title:  "Withdrawal rejected",
			body:   "Your withdrawal request was rejected",
			data:   map[string]interface{}{"withdrawal_id": req.ID, "notes": notes},
		})
		out = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[Withdrawal] rejected", zap.Uint("id", id), zap.Uint("user_id", out.UserID))
	return &out, nil
}

