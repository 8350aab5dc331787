package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"viewearn/internal/domain"
	"viewearn/internal/models"
)

var errNotLocked = errors.New("wallet not locked by this transaction")

type memState struct {
	nextID          uint
	wallets         map[uint]models.Wallet
	coinTxs         []models.CoinTransaction
	earnings        []models.Earning
	creatorEarnings []models.CreatorEarning
	videos          map[uint]models.Video
	ads             map[uint]models.Ad
	tasks           map[uint]models.DailyTask
	completions     []models.UserDailyTask
	milestones      []models.UserMilestone
	streaks         map[uint]models.UserStreak
	rewards         map[uint]models.Reward
	userRewards     []models.UserReward
	referrals       []models.Referral
	withdrawals     map[uint]models.WithdrawalRequest
}

func (s *memState) id() uint {
	s.nextID++
	return s.nextID
}

// MemoryStore keeps the ledger in process memory. It backs the service and
// handler tests and locks the way LedgerStore does: LockWallet takes a
// per-user lock held until the transaction ends, and a transaction that
// reads or writes a user's rows without holding it fails. mu guards the
// maps for the length of a single call only. A failed transaction replays
// its undo log.
type MemoryStore struct {
	mu    sync.Mutex
	st    *memState
	users map[uint]*sync.Mutex
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		st: &memState{
			wallets:     map[uint]models.Wallet{},
			videos:      map[uint]models.Video{},
			ads:         map[uint]models.Ad{},
			tasks:       map[uint]models.DailyTask{},
			streaks:     map[uint]models.UserStreak{},
			rewards:     map[uint]models.Reward{},
			withdrawals: map[uint]models.WithdrawalRequest{},
		},
		users: map[uint]*sync.Mutex{},
		now:   time.Now,
	}
}

func (s *MemoryStore) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[userID]
	if !ok {
		l = &sync.Mutex{}
		s.users[userID] = l
	}
	return l
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s, held: map[uint]*sync.Mutex{}}
	defer tx.release()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// PutVideo, PutAd, PutTask and PutReward seed catalog rows. A zero ID is
// assigned.

func (s *MemoryStore) PutVideo(v models.Video) models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.st.id()
	}
	s.st.videos[v.ID] = v
	return v
}

func (s *MemoryStore) PutAd(a models.Ad) models.Ad {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.st.id()
	}
	s.st.ads[a.ID] = a
	return a
}

func (s *MemoryStore) PutTask(t models.DailyTask) models.DailyTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.st.id()
	}
	s.st.tasks[t.ID] = t
	return t
}

func (s *MemoryStore) PutReward(r models.Reward) models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.st.id()
	}
	s.st.rewards[r.ID] = r
	return r
}

// PutStreak overwrites a user's streak record.
func (s *MemoryStore) PutStreak(st models.UserStreak) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.st.id()
	}
	s.st.streaks[st.UserID] = st
}

// Video returns the catalog row, including its view counter.
func (s *MemoryStore) Video(id uint) (models.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.videos[id]
	return v, ok
}

func (s *MemoryStore) Ad(id uint) (models.Ad, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.ads[id]
	return a, ok
}

// CreatorEarnings lists the creator's ad shares, oldest first.
func (s *MemoryStore) CreatorEarnings(creatorID uint) []models.CreatorEarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CreatorEarning
	for _, e := range s.st.creatorEarnings {
		if e.CreatorID == creatorID {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) FindWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func (s *MemoryStore) ListCoinTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.CoinTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CoinTransaction
	for i := len(s.st.coinTxs) - 1; i >= 0; i-- {
		if s.st.coinTxs[i].UserID == userID {
			out = append(out, s.st.coinTxs[i])
		}
	}
	return page(out, limit, offset), nil
}

func (s *MemoryStore) ListEarnings(ctx context.Context, userID uint, limit, offset int) ([]models.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Earning
	for i := len(s.st.earnings) - 1; i >= 0; i-- {
		if s.st.earnings[i].UserID == userID {
			out = append(out, s.st.earnings[i])
		}
	}
	return page(out, limit, offset), nil
}

func (s *MemoryStore) FindStreak(ctx context.Context, userID uint) (*models.UserStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.st.streaks[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (s *MemoryStore) ListActiveTasks(ctx context.Context) ([]models.DailyTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailyTask
	for _, t := range s.st.tasks {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListRewards(ctx context.Context) ([]models.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reward
	for _, r := range s.st.rewards {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CoinPrice == out[j].CoinPrice {
			return out[i].ID < out[j].ID
		}
		return out[i].CoinPrice < out[j].CoinPrice
	})
	return out, nil
}

func (s *MemoryStore) ListUserRewards(ctx context.Context, userID uint) ([]models.UserReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserReward
	for i := len(s.st.userRewards) - 1; i >= 0; i-- {
		ur := s.st.userRewards[i]
		if ur.UserID == userID {
			ur.Reward = s.st.rewards[ur.RewardID]
			out = append(out, ur)
		}
	}
	return out, nil
}

func (s *MemoryStore) withdrawalsWhere(match func(models.WithdrawalRequest) bool) []models.WithdrawalRequest {
	var out []models.WithdrawalRequest
	for _, w := range s.st.withdrawals {
		if match(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) ListWithdrawals(ctx context.Context, userID uint, limit, offset int) ([]models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.withdrawalsWhere(func(w models.WithdrawalRequest) bool { return w.UserID == userID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return page(out, limit, offset), nil
}

func (s *MemoryStore) ListWithdrawalsByStatus(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.withdrawalsWhere(func(w models.WithdrawalRequest) bool { return status == "" || w.Status == status })
	return page(out, limit, offset), nil
}

func (s *MemoryStore) FindWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (s *MemoryStore) IncrementVideoViews(ctx context.Context, videoID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.videos[videoID]
	if !ok {
		return domain.ErrNotFound
	}
	v.ViewCount++
	s.st.videos[videoID] = v
	return nil
}

func (s *MemoryStore) IncrementAdViews(ctx context.Context, adID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.ads[adID]
	if !ok {
		return domain.ErrNotFound
	}
	a.ViewCount++
	s.st.ads[adID] = a
	return nil
}

type memTx struct {
	s    *MemoryStore
	held map[uint]*sync.Mutex
	undo []func(st *memState)
}

func (t *memTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i](t.s.st)
	}
}

func (t *memTx) onRollback(f func(st *memState)) {
	t.undo = append(t.undo, f)
}

func (t *memTx) lock(userID uint) {
	if _, ok := t.held[userID]; ok {
		return
	}
	l := t.s.userLock(userID)
	l.Lock()
	t.held[userID] = l
}

// owns fails unless this transaction holds userID's wallet lock.
func (t *memTx) owns(userID uint) error {
	if _, ok := t.held[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, errNotLocked)
	}
	return nil
}

// state locks the maps for one call. Callers defer the returned unlock.
func (t *memTx) state() (*memState, func()) {
	t.s.mu.Lock()
	return t.s.st, t.s.mu.Unlock
}

func (t *memTx) LockWallet(userID uint) (*models.Wallet, error) {
	t.lock(userID)
	st, unlock := t.state()
	defer unlock()
	w, ok := st.wallets[userID]
	if !ok {
		now := t.s.now()
		w = models.Wallet{ID: st.id(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		st.wallets[userID] = w
		t.onRollback(func(st *memState) { delete(st.wallets, userID) })
	}
	return &w, nil
}

func (t *memTx) LockExistingWallet(userID uint) (*models.Wallet, error) {
	t.lock(userID)
	st, unlock := t.state()
	defer unlock()
	w, ok := st.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (t *memTx) SaveWallet(w *models.Wallet) error {
	if err := t.owns(w.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	userID := w.UserID
	prev, existed := st.wallets[userID]
	w.UpdatedAt = t.s.now()
	st.wallets[userID] = *w
	t.onRollback(func(st *memState) {
		if existed {
			st.wallets[userID] = prev
		} else {
			delete(st.wallets, userID)
		}
	})
	return nil
}

func (t *memTx) AddCoinTransaction(ct *models.CoinTransaction) error {
	if err := t.owns(ct.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	ct.ID = st.id()
	ct.CreatedAt = t.s.now()
	st.coinTxs = append(st.coinTxs, *ct)
	id := ct.ID
	t.onRollback(func(st *memState) {
		st.coinTxs = slices.DeleteFunc(st.coinTxs, func(c models.CoinTransaction) bool { return c.ID == id })
	})
	return nil
}

func (t *memTx) SumCoinTransactions(userID uint) (int64, error) {
	if err := t.owns(userID); err != nil {
		return 0, err
	}
	st, unlock := t.state()
	defer unlock()
	var sum int64
	for _, ct := range st.coinTxs {
		if ct.UserID == userID {
			sum += ct.Amount
		}
	}
	return sum, nil
}

func (t *memTx) AddEarning(e *models.Earning) (bool, error) {
	if err := t.owns(e.UserID); err != nil {
		return false, err
	}
	st, unlock := t.state()
	defer unlock()
	if e.DedupKey != nil {
		for _, existing := range st.earnings {
			if existing.DedupKey != nil && *existing.DedupKey == *e.DedupKey {
				return false, nil
			}
		}
	}
	e.ID = st.id()
	e.CreatedAt = t.s.now()
	st.earnings = append(st.earnings, *e)
	id := e.ID
	t.onRollback(func(st *memState) {
		st.earnings = slices.DeleteFunc(st.earnings, func(e models.Earning) bool { return e.ID == id })
	})
	return true, nil
}

func (t *memTx) CountEarnings(userID uint, earningType, day string) (int64, error) {
	if err := t.owns(userID); err != nil {
		return 0, err
	}
	st, unlock := t.state()
	defer unlock()
	var n int64
	for _, e := range st.earnings {
		if e.UserID == userID && e.Type == earningType && e.DayKey == day {
			n++
		}
	}
	return n, nil
}

func (t *memTx) AddCreatorEarning(e *models.CreatorEarning) error {
	if err := t.owns(e.CreatorID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	e.ID = st.id()
	e.CreatedAt = t.s.now()
	st.creatorEarnings = append(st.creatorEarnings, *e)
	id := e.ID
	t.onRollback(func(st *memState) {
		st.creatorEarnings = slices.DeleteFunc(st.creatorEarnings, func(e models.CreatorEarning) bool { return e.ID == id })
	})
	return nil
}

func (t *memTx) GetVideo(id uint) (*models.Video, error) {
	st, unlock := t.state()
	defer unlock()
	v, ok := st.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (t *memTx) GetAd(id uint) (*models.Ad, error) {
	st, unlock := t.state()
	defer unlock()
	a, ok := st.ads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) GetTask(id uint) (*models.DailyTask, error) {
	st, unlock := t.state()
	defer unlock()
	task, ok := st.tasks[id]
	if !ok || !task.IsActive {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

func (t *memTx) GetTaskCompletion(userID, taskID uint, date string) (*models.UserDailyTask, error) {
	if err := t.owns(userID); err != nil {
		return nil, err
	}
	st, unlock := t.state()
	defer unlock()
	for _, c := range st.completions {
		if c.UserID == userID && c.TaskID == taskID && c.Date == date {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) ListTaskCompletions(userID uint, date string) ([]models.UserDailyTask, error) {
	if err := t.owns(userID); err != nil {
		return nil, err
	}
	st, unlock := t.state()
	defer unlock()
	var out []models.UserDailyTask
	for _, c := range st.completions {
		if c.UserID == userID && c.Date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *memTx) SaveTaskCompletion(c *models.UserDailyTask) error {
	if err := t.owns(c.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	now := t.s.now()
	c.UpdatedAt = now
	if c.ID != 0 {
		for i := range st.completions {
			if st.completions[i].ID == c.ID {
				prev := st.completions[i]
				st.completions[i] = *c
				t.onRollback(func(st *memState) {
					for j := range st.completions {
						if st.completions[j].ID == prev.ID {
							st.completions[j] = prev
						}
					}
				})
				return nil
			}
		}
	}
	c.ID = st.id()
	c.CreatedAt = now
	st.completions = append(st.completions, *c)
	id := c.ID
	t.onRollback(func(st *memState) {
		st.completions = slices.DeleteFunc(st.completions, func(c models.UserDailyTask) bool { return c.ID == id })
	})
	return nil
}

func (t *memTx) CountClaimedTasks(userID uint, kind string) (int64, error) {
	if err := t.owns(userID); err != nil {
		return 0, err
	}
	st, unlock := t.state()
	defer unlock()
	var n int64
	for _, c := range st.completions {
		if c.UserID == userID && c.TaskKind == kind && c.RewardClaimed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) AddMilestone(m *models.UserMilestone) (bool, error) {
	if err := t.owns(m.UserID); err != nil {
		return false, err
	}
	st, unlock := t.state()
	defer unlock()
	for _, existing := range st.milestones {
		if existing.UserID == m.UserID && existing.Threshold == m.Threshold {
			return false, nil
		}
	}
	m.ID = st.id()
	m.CreatedAt = t.s.now()
	st.milestones = append(st.milestones, *m)
	id := m.ID
	t.onRollback(func(st *memState) {
		st.milestones = slices.DeleteFunc(st.milestones, func(m models.UserMilestone) bool { return m.ID == id })
	})
	return true, nil
}

func (t *memTx) GetStreak(userID uint) (*models.UserStreak, error) {
	if err := t.owns(userID); err != nil {
		return nil, err
	}
	st, unlock := t.state()
	defer unlock()
	s, ok := st.streaks[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (t *memTx) SaveStreak(s *models.UserStreak) error {
	if err := t.owns(s.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	prev, existed := st.streaks[s.UserID]
	now := t.s.now()
	if s.ID == 0 {
		s.ID = st.id()
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	st.streaks[s.UserID] = *s
	userID := s.UserID
	t.onRollback(func(st *memState) {
		if existed {
			st.streaks[userID] = prev
		} else {
			delete(st.streaks, userID)
		}
	})
	return nil
}

func (t *memTx) GetReward(id uint) (*models.Reward, error) {
	st, unlock := t.state()
	defer unlock()
	r, ok := st.rewards[id]
	if !ok || !r.IsActive {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (t *memTx) HasUserReward(userID, rewardID uint) (bool, error) {
	if err := t.owns(userID); err != nil {
		return false, err
	}
	st, unlock := t.state()
	defer unlock()
	for _, ur := range st.userRewards {
		if ur.UserID == userID && ur.RewardID == rewardID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) AddUserReward(r *models.UserReward) error {
	if err := t.owns(r.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	r.ID = st.id()
	r.CreatedAt = t.s.now()
	st.userRewards = append(st.userRewards, *r)
	id := r.ID
	t.onRollback(func(st *memState) {
		st.userRewards = slices.DeleteFunc(st.userRewards, func(r models.UserReward) bool { return r.ID == id })
	})
	return nil
}

func (t *memTx) CountReferrals(referrerID uint) (int64, error) {
	if err := t.owns(referrerID); err != nil {
		return 0, err
	}
	st, unlock := t.state()
	defer unlock()
	var n int64
	for _, r := range st.referrals {
		if r.ReferrerID == referrerID {
			n++
		}
	}
	return n, nil
}

// AddReferral checks uniqueness on the referred user across all referrers,
// like the unique index does.
func (t *memTx) AddReferral(r *models.Referral) (bool, error) {
	if err := t.owns(r.ReferrerID); err != nil {
		return false, err
	}
	st, unlock := t.state()
	defer unlock()
	for _, existing := range st.referrals {
		if existing.ReferredUserID == r.ReferredUserID {
			return false, nil
		}
	}
	r.ID = st.id()
	r.CreatedAt = t.s.now()
	st.referrals = append(st.referrals, *r)
	id := r.ID
	t.onRollback(func(st *memState) {
		st.referrals = slices.DeleteFunc(st.referrals, func(r models.Referral) bool { return r.ID == id })
	})
	return true, nil
}

func (t *memTx) LockWithdrawal(id uint) (*models.WithdrawalRequest, error) {
	st, unlock := t.state()
	defer unlock()
	w, ok := st.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := t.owns(w.UserID); err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *memTx) SaveWithdrawal(w *models.WithdrawalRequest) error {
	if err := t.owns(w.UserID); err != nil {
		return err
	}
	st, unlock := t.state()
	defer unlock()
	now := t.s.now()
	prev, existed := st.withdrawals[w.ID]
	if w.ID == 0 {
		w.ID = st.id()
		w.CreatedAt = now
		existed = false
	}
	w.UpdatedAt = now
	st.withdrawals[w.ID] = *w
	id := w.ID
	t.onRollback(func(st *memState) {
		if existed {
			st.withdrawals[id] = prev
		} else {
			delete(st.withdrawals, id)
		}
	})
	return nil
}
