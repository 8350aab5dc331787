package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewearn/internal/clock"
	"viewearn/internal/domain"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/rules"
)

type sentNotice struct {
	UserID uint
	Type   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *recordingNotifier) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{UserID: userID, Type: notifType})
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.Type)
	}
	return out
}

type recordingPublisher struct {
	mu      sync.Mutex
	wallets []models.Wallet
}

func (p *recordingPublisher) PublishWallet(w models.Wallet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallets = append(p.wallets, w)
}

type fixture struct {
	store     *repository.MemoryStore
	clock     *clock.Fixed
	svc       *LedgerService
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		clock:     &clock.Fixed{T: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	f.svc = NewLedgerService(f.store, f.clock, nil)
	f.svc.SetNotifier(f.notifier)
	f.svc.SetPublisher(f.publisher)
	return f
}

// giveCoins credits coins through the streak bonus path so the coin ledger
// stays reconciled.
func (f *fixture) giveCoins(t *testing.T, userID uint, coins int64) {
	t.Helper()
	_, err := f.svc.AwardStreakBonus(context.Background(), userID, domain.StreakBonusDays, coins)
	require.NoError(t, err)
}

func (f *fixture) wallet(t *testing.T, userID uint) models.Wallet {
	t.Helper()
	w, err := f.svc.Wallet(context.Background(), userID)
	require.NoError(t, err)
	return *w
}

func (f *fixture) assertReconciled(t *testing.T, userID uint) {
	t.Helper()
	r, err := f.svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, r.Balanced, "coins %d != ledger %d", r.Coins, r.LedgerSum)
}

func TestRecordVideoView_OncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.PutVideo(models.Video{Title: "intro"})

	ok, err := f.svc.RecordVideoView(ctx, 1, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.RecordVideoView(ctx, 1, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	w := f.wallet(t, 1)
	assert.Equal(t, domain.VideoViewReward, w.Balance)
	assert.Equal(t, domain.VideoViewReward, w.TotalEarned)

	got, _ := f.store.Video(v.ID)
	assert.Equal(t, int64(2), got.ViewCount)

	f.clock.Advance(1)
	ok, err = f.svc.RecordVideoView(ctx, 1, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*domain.VideoViewReward, f.wallet(t, 1).Balance)

	earnings, err := f.svc.Earnings(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, earnings, 2)
}

func TestRecordVideoView_Concurrent(t *testing.T) {
	f := newFixture(t)
	v := f.store.PutVideo(models.Video{Title: "race"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	credited := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.RecordVideoView(context.Background(), 7, v.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				credited++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, credited)
	assert.Equal(t, domain.VideoViewReward, f.wallet(t, 7).Balance)
}

func TestRecordVideoView_UnknownVideo(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RecordVideoView(context.Background(), 1, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordAdView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uint(50)
	owned := f.store.PutVideo(models.Video{Title: "owned", OwnerID: &creator})
	orphan := f.store.PutVideo(models.Video{Title: "orphan"})
	ad := f.store.PutAd(models.Ad{Title: "soda", EarningPerView: 10, IsActive: true})
	off := f.store.PutAd(models.Ad{Title: "old", EarningPerView: 10, IsActive: false})

	ok, err := f.svc.RecordAdView(ctx, ad.ID, owned.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), f.wallet(t, 3).Balance)
	assert.Equal(t, int64(7), f.wallet(t, creator).Balance)
	ce := f.store.CreatorEarnings(creator)
	require.Len(t, ce, 1)
	assert.Equal(t, int64(7), ce[0].Amount)
	assert.Equal(t, uint(3), ce[0].ViewerID)

	ok, err = f.svc.RecordAdView(ctx, ad.ID, owned.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "same ad on same video is credited once a day")

	ok, err = f.svc.RecordAdView(ctx, ad.ID, orphan.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(6), f.wallet(t, 3).Balance)
	assert.Equal(t, int64(7), f.wallet(t, creator).Balance)

	ok, err = f.svc.RecordAdView(ctx, off.ID, owned.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.RecordAdView(ctx, 404, owned.ID, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, _ := f.store.Ad(ad.ID)
	assert.Equal(t, int64(3), got.ViewCount)

	// 30% of 3 floors to 0: the impression counts, nobody is paid
	tiny := f.store.PutAd(models.Ad{Title: "tiny", EarningPerView: 3, IsActive: true})
	ok, err = f.svc.RecordAdView(ctx, tiny.ID, owned.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.wallet(t, 4).Balance)
	assert.Equal(t, int64(7), f.wallet(t, creator).Balance)
	got, _ = f.store.Ad(tiny.ID)
	assert.Equal(t, int64(1), got.ViewCount)
}

func TestConvertCoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.giveCoins(t, 1, 2000)

	cv, err := f.svc.ConvertCoins(ctx, 1, 1050)
	require.NoError(t, err)
	assert.Equal(t, int64(105), cv.Amount)
	assert.Equal(t, int64(1050), cv.CoinsUsed)
	assert.Equal(t, int64(950), cv.Wallet.Coins)

	cv, err = f.svc.ConvertCoins(ctx, 1, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(15), cv.Amount)
	assert.Equal(t, int64(150), cv.CoinsUsed)

	_, err = f.svc.ConvertCoins(ctx, 1, 99)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.svc.ConvertCoins(ctx, 1, 801)
	assert.ErrorIs(t, err, domain.ErrInsufficientCoins)

	w := f.wallet(t, 1)
	assert.Equal(t, int64(800), w.Coins)
	assert.Equal(t, int64(120), w.Balance)
	assert.Equal(t, int64(120), w.TotalEarned)
	f.assertReconciled(t, 1)
}

func TestPurchaseReward_ConcurrentSinglePurchase(t *testing.T) {
	f := newFixture(t)
	r := f.store.PutReward(models.Reward{Name: "Frame", CoinPrice: 300, IsActive: true})
	f.giveCoins(t, 1, 300)

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PurchaseReward(context.Background(), 1, r.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyOwned), errors.Is(err, domain.ErrInsufficientCoins):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Zero(t, f.wallet(t, 1).Coins)

	owned, err := f.svc.OwnedRewards(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Frame", owned[0].Reward.Name)
	f.assertReconciled(t, 1)
}

func TestPurchaseReward_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.store.PutReward(models.Reward{Name: "Badge", CoinPrice: 100, IsActive: true})

	_, err := f.svc.PurchaseReward(ctx, 1, r.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientCoins)

	_, err = f.svc.PurchaseReward(ctx, 1, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.giveCoins(t, 1, 250)
	_, err = f.svc.PurchaseReward(ctx, 1, r.ID)
	require.NoError(t, err)
	_, err = f.svc.PurchaseReward(ctx, 1, r.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyOwned)
	assert.Equal(t, int64(150), f.wallet(t, 1).Coins)
}

func TestCheckIn_Rollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := f.clock.Days().Yesterday
	f.store.PutStreak(models.UserStreak{UserID: 1, CurrentStreak: 25, LongestStreak: 25, LastLoginDate: &yesterday})

	res, err := f.svc.CheckIn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "continuing", res.State)
	assert.Equal(t, 0, res.Streak.CurrentStreak)
	assert.Equal(t, 26, res.Streak.LongestStreak)
	assert.Equal(t, domain.StreakBonusCoins, res.BonusAwarded)
	assert.Equal(t, domain.StreakBonusCoins, f.wallet(t, 1).Coins)

	res, err = f.svc.CheckIn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "active_today", res.State)
	assert.Zero(t, res.BonusAwarded)
	assert.Equal(t, domain.StreakBonusCoins, f.wallet(t, 1).Coins)

	assert.Equal(t, []string{domain.NotifyStreakBonus}, f.notifier.types())
	f.assertReconciled(t, 1)
}

func TestCheckIn_BreakAndConcurrentSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := "2026-03-01"
	f.store.PutStreak(models.UserStreak{UserID: 1, CurrentStreak: 20, LongestStreak: 22, LastLoginDate: &old})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckIn(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := f.svc.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 22, st.LongestStreak)
	assert.Equal(t, f.clock.Days().Today, *st.LastLoginDate)
}

func TestCheckIn_FirstLoginThenNextDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CheckIn(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "no_record", res.State)
	assert.Equal(t, 1, res.Streak.CurrentStreak)

	f.clock.Advance(1)
	res, err = f.svc.CheckIn(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak.CurrentStreak)
	assert.Equal(t, 2, res.Streak.LongestStreak)
}

func TestClaimTaskReward_Replay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.store.PutTask(models.DailyTask{Title: "Daily check-in", Kind: rules.KindDailyLogin, Target: 1, RewardAmount: 5, RewardCoins: 20, IsActive: true})

	_, err := f.svc.ClaimTaskReward(ctx, 1, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.svc.CheckIn(ctx, 1)
	require.NoError(t, err)

	claim, err := f.svc.ClaimTaskReward(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claim.Wallet.Balance)
	assert.Equal(t, int64(20), claim.Wallet.Coins)

	_, err = f.svc.ClaimTaskReward(ctx, 1, task.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	w := f.wallet(t, 1)
	assert.Equal(t, int64(5), w.Balance)
	assert.Equal(t, int64(20), w.Coins)
	f.assertReconciled(t, 1)

	f.clock.Advance(1)
	_, err = f.svc.CheckIn(ctx, 1)
	require.NoError(t, err)
	_, err = f.svc.ClaimTaskReward(ctx, 1, task.ID)
	require.NoError(t, err)
}

func TestClaimTaskReward_ConcurrentClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.store.PutTask(models.DailyTask{Title: "Watch 2", Kind: rules.KindWatchVideos, Target: 2, RewardAmount: 10, IsActive: true})
	for i := 0; i < 2; i++ {
		v := f.store.PutVideo(models.Video{Title: "v"})
		_, err := f.svc.RecordVideoView(ctx, 1, v.ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, already int
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ClaimTaskReward(ctx, 1, task.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrAlreadyClaimed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 15, already)
	assert.Equal(t, 2*domain.VideoViewReward+10, f.wallet(t, 1).Balance)
}

func TestClaimTaskReward_WatchProgressIsServerSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.store.PutTask(models.DailyTask{Title: "Watch 3", Kind: rules.KindWatchVideos, Target: 3, RewardAmount: 10, IsActive: true})
	v := f.store.PutVideo(models.Video{Title: "same"})

	// replays of one video do not count as extra watches
	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordVideoView(ctx, 1, v.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.ClaimTaskReward(ctx, 1, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	views, err := f.svc.Tasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].Progress)
	assert.False(t, views[0].Eligible)
	assert.False(t, views[0].Claimed)

	_, err = f.svc.ClaimTaskReward(ctx, 1, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimTaskReward_ReferralMilestone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.store.PutTask(models.DailyTask{Title: "Invite a friend", Kind: rules.KindReferFriends, Target: 1, RewardAmount: 1, IsActive: true})
	_, err := f.svc.RecordReferral(ctx, 1, 2)
	require.NoError(t, err)

	var last *TaskClaim
	for day := 0; day < 10; day++ {
		last, err = f.svc.ClaimTaskReward(ctx, 1, task.ID)
		require.NoError(t, err)
		if day < 9 {
			assert.Empty(t, last.Milestones)
		}
		f.clock.Advance(1)
	}
	require.Len(t, last.Milestones, 1)
	assert.Equal(t, int64(10), last.Milestones[0].Threshold)
	assert.Equal(t, int64(50), f.wallet(t, 1).Coins)
	assert.Contains(t, f.notifier.types(), domain.NotifyMilestoneBonus)
	f.assertReconciled(t, 1)
}

func TestRecordReferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordReferral(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrSelfReferral)

	_, err = f.svc.RecordReferral(ctx, 1, 2)
	require.NoError(t, err)
	_, err = f.svc.RecordReferral(ctx, 3, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyReferred)

	w := f.wallet(t, 1)
	assert.Equal(t, domain.ReferralReward, w.Balance)
	assert.Zero(t, f.wallet(t, 3).Balance)
}

func earn(t *testing.T, f *fixture, userID uint, videos int) {
	t.Helper()
	for i := 0; i < videos; i++ {
		v := f.store.PutVideo(models.Video{Title: "v"})
		_, err := f.svc.RecordVideoView(context.Background(), userID, v.ID)
		require.NoError(t, err)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earn(t, f, 1, 5) // balance 100
	bank := BankDetails{AccountHolder: "A Holder", AccountNumber: "1234567890", IFSCCode: "HDFC0001234", BankName: "HDFC"}

	_, err := f.svc.RequestWithdrawal(ctx, 1, 101, bank)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	_, err = f.svc.RequestWithdrawal(ctx, 1, 0, bank)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	first, err := f.svc.RequestWithdrawal(ctx, 1, 80, bank)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, first.Status)
	second, err := f.svc.RequestWithdrawal(ctx, 1, 60, bank)
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.wallet(t, 1).Balance, "requests do not debit")

	approved, err := f.svc.ApproveWithdrawal(ctx, first.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)
	assert.NotNil(t, approved.ProcessedAt)

	w := f.wallet(t, 1)
	assert.Equal(t, int64(20), w.Balance)
	assert.Equal(t, int64(80), w.TotalWithdrawn)
	assert.Equal(t, int64(100), w.TotalEarned)

	_, err = f.svc.ApproveWithdrawal(ctx, first.ID, "again")
	assert.ErrorIs(t, err, domain.ErrWithdrawalNotPending)

	// balance moved since the second request was filed
	_, err = f.svc.ApproveWithdrawal(ctx, second.ID, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	pending, err := f.svc.WithdrawalsByStatus(ctx, domain.WithdrawalPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	rejected, err := f.svc.RejectWithdrawal(ctx, second.ID, "insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)
	_, err = f.svc.ApproveWithdrawal(ctx, second.ID, "")
	assert.ErrorIs(t, err, domain.ErrWithdrawalNotPending)
	assert.Equal(t, int64(20), f.wallet(t, 1).Balance)

	_, err = f.svc.ApproveWithdrawal(ctx, 999, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{domain.NotifyWithdrawalApproved, domain.NotifyWithdrawalRejected}, f.notifier.types())
}

func TestProcessWithdrawal_ReChecksBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earn(t, f, 1, 1)

	_, err := f.svc.ProcessWithdrawal(ctx, 1, 21)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err := f.svc.ProcessWithdrawal(ctx, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, w.Balance)
	assert.Equal(t, int64(20), w.TotalWithdrawn)
}

func TestNeverNegative_MixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.store.PutReward(models.Reward{Name: "Theme", CoinPrice: 400, IsActive: true})
	f.giveCoins(t, 1, 500)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.ConvertCoins(ctx, 1, 200)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.PurchaseReward(ctx, 1, r.ID)
		}()
	}
	wg.Wait()

	w := f.wallet(t, 1)
	assert.GreaterOrEqual(t, w.Coins, int64(0))
	assert.GreaterOrEqual(t, w.Balance, int64(0))
	assert.Equal(t, w.Balance*domain.CoinsPerRupee+w.Coins+purchased(t, f, 1)*r.CoinPrice, int64(500))
	f.assertReconciled(t, 1)
}

func purchased(t *testing.T, f *fixture, userID uint) int64 {
	owned, err := f.svc.OwnedRewards(context.Background(), userID)
	require.NoError(t, err)
	return int64(len(owned))
}

func TestPublisherSeesCommittedWallets(t *testing.T) {
	f := newFixture(t)
	v := f.store.PutVideo(models.Video{Title: "v"})

	_, err := f.svc.RecordVideoView(context.Background(), 4, v.ID)
	require.NoError(t, err)
	_, err = f.svc.ConvertCoins(context.Background(), 4, 100)
	require.Error(t, err)

	require.Len(t, f.publisher.wallets, 1)
	assert.Equal(t, uint(4), f.publisher.wallets[0].UserID)
	assert.Equal(t, domain.VideoViewReward, f.publisher.wallets[0].Balance)
}

// callLog wraps the memory store and records the Tx calls each
// transaction makes, in order.
type callLog struct {
	*repository.MemoryStore
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return c.MemoryStore.InTx(ctx, func(tx repository.Tx) error {
		return fn(&loggedTx{Tx: tx, log: c})
	})
}

type loggedTx struct {
	repository.Tx
	log *callLog
}

func (t *loggedTx) LockWallet(userID uint) (*models.Wallet, error) {
	t.log.add("LockWallet")
	return t.Tx.LockWallet(userID)
}

func (t *loggedTx) GetAd(id uint) (*models.Ad, error) {
	t.log.add("GetAd")
	return t.Tx.GetAd(id)
}

func (t *loggedTx) GetVideo(id uint) (*models.Video, error) {
	t.log.add("GetVideo")
	return t.Tx.GetVideo(id)
}

func (t *loggedTx) AddEarning(e *models.Earning) (bool, error) {
	t.log.add("AddEarning")
	return t.Tx.AddEarning(e)
}

func (t *loggedTx) SaveWallet(w *models.Wallet) error {
	t.log.add("SaveWallet")
	return t.Tx.SaveWallet(w)
}

func TestRecordAdView_LocksWalletsBeforeWriting(t *testing.T) {
	mem := repository.NewMemoryStore()
	store := &callLog{MemoryStore: mem}
	svc := NewLedgerService(store, &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}, nil)
	creator := uint(2)
	v := mem.PutVideo(models.Video{Title: "v", OwnerID: &creator})
	ad := mem.PutAd(models.Ad{Title: "a", EarningPerView: 10, IsActive: true})

	ok, err := svc.RecordAdView(context.Background(), ad.ID, v.ID, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	require.GreaterOrEqual(t, len(store.calls), 5)
	assert.Equal(t, []string{"GetAd", "GetVideo", "LockWallet", "LockWallet", "AddEarning"}, store.calls[:5])

	// the shared ad row is only touched after commit
	got, _ := mem.Ad(ad.ID)
	assert.Equal(t, int64(1), got.ViewCount)
}

// unlockedStore hands out wallets without taking the per-user lock, the way
// a service that skipped LockWallet would see them.
type unlockedStore struct {
	*repository.MemoryStore
}

func (s unlockedStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(tx repository.Tx) error {
		return fn(unlockedTx{Tx: tx, store: s.MemoryStore})
	})
}

type unlockedTx struct {
	repository.Tx
	store *repository.MemoryStore
}

func (t unlockedTx) LockWallet(userID uint) (*models.Wallet, error) {
	w, err := t.store.FindWallet(context.Background(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &models.Wallet{UserID: userID}, nil
	}
	return w, err
}

func TestMemoryStore_RejectsLedgerWorkWithoutWalletLock(t *testing.T) {
	mem := repository.NewMemoryStore()
	svc := NewLedgerService(unlockedStore{mem}, &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}, nil)
	v := mem.PutVideo(models.Video{Title: "v"})

	var wg sync.WaitGroup
	var failures sync.Map
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordVideoView(context.Background(), 7, v.ID)
			if err != nil {
				failures.Store(i, err)
			}
		}(i)
	}
	wg.Wait()

	n := 0
	failures.Range(func(_, e any) bool {
		n++
		assert.Contains(t, e.(error).Error(), "not locked")
		return true
	})
	assert.Equal(t, 10, n)
	_, err := mem.FindWallet(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "nothing may be credited")
}

func TestReconcile_WithoutWalletCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Reconcile(ctx, 404)
	require.NoError(t, err)
	assert.True(t, r.Balanced)
	assert.Zero(t, r.Coins)

	_, err = f.svc.Tasks(ctx, 404)
	require.NoError(t, err)

	_, err = f.store.FindWallet(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
