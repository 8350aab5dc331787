package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"viewearn/internal/clock"
	"viewearn/internal/domain"
	"viewearn/internal/metrics"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/rules"
)

// Notifier delivers a user-facing notice after a ledger operation commits.
type Notifier interface {
	Notify(userID uint, notifType, title, body string, data map[string]interface{}) error
}

// WalletPublisher pushes a committed wallet snapshot to live clients.
type WalletPublisher interface {
	PublishWallet(w models.Wallet)
}

// LedgerService is the only writer of wallets, streaks, task completions,
// owned rewards and withdrawal status. Each exported mutation is one store
// transaction that locks the affected wallets before reading anything.
type LedgerService struct {
	store     repository.Store
	clock     clock.Clock
	log       *zap.Logger
	notifier  Notifier
	publisher WalletPublisher
}

func NewLedgerService(store repository.Store, clk clock.Clock, log *zap.Logger) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{store: store, clock: clk, log: log}
}

func (s *LedgerService) SetNotifier(n Notifier) { s.notifier = n }

func (s *LedgerService) SetPublisher(p WalletPublisher) { s.publisher = p }

type notice struct {
	userID uint
	kind   string
	title  string
	body   string
	data   map[string]interface{}
}

// effects collects what happens after commit: wallet pushes, notices and
// movement metrics. Nothing in here runs if the transaction rolls back.
type effects struct {
	wallets     map[uint]models.Wallet
	notices     []notice
	coinsIn     int64
	coinsOut    int64
	currencyIn  int64
	currencyOut int64
}

func newEffects() *effects {
	return &effects{wallets: map[uint]models.Wallet{}}
}

func (fx *effects) notify(n notice) { fx.notices = append(fx.notices, n) }

func toRules(w *models.Wallet) rules.Wallet {
	return rules.Wallet{
		Coins:          w.Coins,
		Balance:        w.Balance,
		TotalEarned:    w.TotalEarned,
		TotalWithdrawn: w.TotalWithdrawn,
	}
}

// persist applies m to the locked wallet w and appends m's ledger entries.
// day is the calendar key stamped on earnings.
func (s *LedgerService) persist(tx repository.Tx, w *models.Wallet, m rules.Mutation, day string, fx *effects) error {
	next, err := m.Apply(toRules(w))
	if err != nil {
		return err
	}
	w.Coins = next.Coins
	w.Balance = next.Balance
	w.TotalEarned = next.TotalEarned
	w.TotalWithdrawn = next.TotalWithdrawn
	if err := tx.SaveWallet(w); err != nil {
		return err
	}
	for _, c := range m.Coins {
		if err := tx.AddCoinTransaction(&models.CoinTransaction{
			UserID:      w.UserID,
			Amount:      c.Amount,
			Type:        c.Type,
			Description: c.Description,
		}); err != nil {
			return err
		}
	}
	for _, e := range m.Earnings {
		if _, err := tx.AddEarning(&models.Earning{
			UserID:      w.UserID,
			Amount:      e.Amount,
			Type:        e.Type,
			ReferenceID: e.ReferenceID,
			DayKey:      day,
		}); err != nil {
			return err
		}
	}

	if d := m.Delta.Coins; d > 0 {
		fx.coinsIn += d
	} else {
		fx.coinsOut -= d
	}
	if d := m.Delta.Balance; d > 0 {
		fx.currencyIn += d
	} else {
		fx.currencyOut -= d
	}
	fx.wallets[w.UserID] = *w
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, domain.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, domain.ErrInsufficientCoins):
		return "insufficient_coins"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, domain.ErrAlreadyOwned):
		return "already_owned"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrWithdrawalNotPending),
		errors.Is(err, domain.ErrSelfReferral),
		errors.Is(err, domain.ErrAlreadyReferred):
		return "rejected"
	default:
		return "error"
	}
}

// finish runs post-commit side effects. Failures here never change the
// operation's result.
func (s *LedgerService) finish(op string, err error, fx *effects) {
	if err != nil {
		metrics.RecordLedgerOperation(op, outcome(err))
		if outcome(err) == "error" {
			s.log.Error("[Ledger] operation failed", zap.String("op", op), zap.Error(err))
		}
		return
	}
	if len(fx.wallets) == 0 {
		metrics.RecordLedgerOperation(op, "noop")
		return
	}
	metrics.RecordLedgerOperation(op, "ok")
	metrics.RecordCoinsMoved(fx.coinsIn, fx.coinsOut)
	metrics.RecordCurrencyMoved(fx.currencyIn, fx.currencyOut)

	if s.publisher != nil {
		for _, w := range fx.wallets {
			s.publisher.PublishWallet(w)
		}
	}
	if s.notifier != nil {
		for _, n := range fx.notices {
			if nerr := s.notifier.Notify(n.userID, n.kind, n.title, n.body, n.data); nerr != nil {
				s.log.Warn("[Ledger] notify failed", zap.Uint("user_id", n.userID), zap.String("type", n.kind), zap.Error(nerr))
			}
		}
	}
}

func (s *LedgerService) run(ctx context.Context, op string, fn func(tx repository.Tx, fx *effects) error) error {
	fx := newEffects()
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return fn(tx, fx)
	})
	s.finish(op, err, fx)
	return err
}
