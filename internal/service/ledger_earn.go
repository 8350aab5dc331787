package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"viewearn/internal/domain"
	"viewearn/internal/metrics"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/rules"
)

func videoDedupKey(userID, videoID uint, day string) string {
	return fmt.Sprintf("%s:%d:%d:%s", domain.EarningVideoWatch, userID, videoID, day)
}

func adDedupKey(viewerID, adID, videoID uint, day string) string {
	return fmt.Sprintf("%s:%d:%d:%d:%s", domain.EarningAdView, viewerID, adID, videoID, day)
}

// RecordVideoView credits the per-view reward once per user, video and day.
// A replay on the same day returns false with no error.
func (s *LedgerService) RecordVideoView(ctx context.Context, userID, videoID uint) (bool, error) {
	days := s.clock.Days()
	var credited bool
	err := s.run(ctx, "video_view", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		if _, err := tx.GetVideo(videoID); err != nil {
			return err
		}
		m := rules.VideoView(videoID)
		key := videoDedupKey(userID, videoID, days.Today)
		e := m.Earnings[0]
		ok, err := tx.AddEarning(&models.Earning{
			UserID:      userID,
			Amount:      e.Amount,
			Type:        e.Type,
			ReferenceID: e.ReferenceID,
			DayKey:      days.Today,
			DedupKey:    &key,
		})
		if err != nil || !ok {
			return err
		}
		m.Earnings = nil
		if err := s.persist(tx, w, m, days.Today, fx); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if verr := s.store.IncrementVideoViews(ctx, videoID); verr != nil {
		s.log.Warn("[Ledger] view count bump failed", zap.Uint("video_id", videoID), zap.Error(verr))
	}
	return credited, nil
}

// RecordAdView splits an ad's per-view earning between the viewer and the
// video's owner. Inactive ads and same-day replays return false. The ad's
// impression counter is bumped after commit for every active-ad view.
func (s *LedgerService) RecordAdView(ctx context.Context, adID, videoID, viewerID uint) (bool, error) {
	days := s.clock.Days()
	var credited, served bool
	err := s.run(ctx, "ad_view", func(tx repository.Tx, fx *effects) error {
		ad, err := tx.GetAd(adID)
		if err != nil {
			return err
		}
		if !ad.IsActive {
			return nil
		}
		video, err := tx.GetVideo(videoID)
		if err != nil {
			return err
		}
		served = true
		viewerShare, creatorShare := rules.AdSplit(ad.EarningPerView, video.OwnerID != nil)
		if viewerShare <= 0 {
			return nil
		}

		// Lock in ascending user order so two ad views with swapped
		// viewer/creator cannot deadlock.
		ids := []uint{viewerID}
		if creatorShare > 0 && *video.OwnerID != viewerID {
			ids = append(ids, *video.OwnerID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		locked := make(map[uint]*models.Wallet, len(ids))
		for _, id := range ids {
			w, err := tx.LockWallet(id)
			if err != nil {
				return err
			}
			locked[id] = w
		}

		key := adDedupKey(viewerID, adID, videoID, days.Today)
		ok, err := tx.AddEarning(&models.Earning{
			UserID:      viewerID,
			Amount:      viewerShare,
			Type:        domain.EarningAdView,
			ReferenceID: fmt.Sprint(adID),
			DayKey:      days.Today,
			DedupKey:    &key,
		})
		if err != nil || !ok {
			return err
		}
		viewerMut := rules.AdView(adID, viewerShare)
		viewerMut.Earnings = nil
		if err := s.persist(tx, locked[viewerID], viewerMut, days.Today, fx); err != nil {
			return err
		}
		if creatorShare > 0 {
			creatorID := *video.OwnerID
			if err := s.persist(tx, locked[creatorID], rules.AdView(adID, creatorShare), days.Today, fx); err != nil {
				return err
			}
			if err := tx.AddCreatorEarning(&models.CreatorEarning{
				CreatorID: creatorID,
				AdID:      adID,
				VideoID:   videoID,
				ViewerID:  viewerID,
				Amount:    creatorShare,
			}); err != nil {
				return err
			}
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if served {
		if verr := s.store.IncrementAdViews(ctx, adID); verr != nil {
			s.log.Warn("[Ledger] ad view count bump failed", zap.Uint("ad_id", adID), zap.Error(verr))
		}
	}
	return credited, nil
}

// progress re-derives task progress from stored facts. It must run after
// the user's wallet is locked.
func progress(tx repository.Tx, userID uint, today, yesterday string) (rules.Progress, error) {
	var p rules.Progress
	var err error
	if p.WatchesToday, err = tx.CountEarnings(userID, domain.EarningVideoWatch, today); err != nil {
		return p, err
	}
	if p.Referrals, err = tx.CountReferrals(userID); err != nil {
		return p, err
	}
	st, err := tx.GetStreak(userID)
	if errors.Is(err, domain.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if st.LastLoginDate != nil {
		last := *st.LastLoginDate
		p.CheckedInToday = last == today
		if last == today || last == yesterday {
			p.CurrentStreak = int64(st.CurrentStreak)
		}
	}
	return p, nil
}

type TaskClaim struct {
	Task       models.DailyTask   `json:"task"`
	Wallet     models.Wallet      `json:"wallet"`
	Milestones []domain.Milestone `json:"milestones,omitempty"`
}

// ClaimTaskReward pays a daily task once per user, task and day. Eligibility
// is recomputed here; callers cannot assert progress.
func (s *LedgerService) ClaimTaskReward(ctx context.Context, userID, taskID uint) (*TaskClaim, error) {
	days := s.clock.Days()
	var out TaskClaim
	err := s.run(ctx, "task_claim", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		completion, err := tx.GetTaskCompletion(userID, taskID, days.Today)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			completion = &models.UserDailyTask{UserID: userID, TaskID: taskID, Date: days.Today}
		case err != nil:
			return err
		case completion.RewardClaimed:
			return domain.ErrAlreadyClaimed
		}

		p, err := progress(tx, userID, days.Today, days.Yesterday)
		if err != nil {
			return err
		}
		if _, err := rules.CheckTask(task.Kind, p, task.Target); err != nil {
			return err
		}

		m := rules.TaskReward(task.ID, task.Title, task.RewardAmount, task.RewardCoins)
		if err := s.persist(tx, w, m, days.Today, fx); err != nil {
			return err
		}
		completion.TaskKind = task.Kind
		completion.RewardClaimed = true
		if err := tx.SaveTaskCompletion(completion); err != nil {
			return err
		}

		if task.Kind == rules.KindReferFriends {
			claimed, err := tx.CountClaimedTasks(userID, rules.KindReferFriends)
			if err != nil {
				return err
			}
			for _, ms := range rules.MilestonesCrossed(claimed-1, claimed) {
				inserted, err := tx.AddMilestone(&models.UserMilestone{UserID: userID, Threshold: ms.Threshold, Coins: ms.Coins})
				if err != nil {
					return err
				}
				if !inserted {
					continue
				}
				if err := s.persist(tx, w, rules.MilestoneBonus(ms), days.Today, fx); err != nil {
					return err
				}
				out.Milestones = append(out.Milestones, ms)
				fx.notify(notice{
					userID: userID,
					kind:   domain.NotifyMilestoneBonus,
					title:  "Milestone reached",
					body:   fmt.Sprintf("You completed %d referral tasks and earned %d bonus coins", ms.Threshold, ms.Coins),
					data:   map[string]interface{}{"threshold": ms.Threshold, "coins": ms.Coins},
				})
			}
		}
		out.Task = *task
		out.Wallet = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AwardStreakBonus credits bonus coins unconditionally. The streak tracker
// is the only caller that decides when it fires; CheckIn uses the same
// logic inside its own transaction.
func (s *LedgerService) AwardStreakBonus(ctx context.Context, userID uint, streakCount int, bonusCoins int64) (*models.Wallet, error) {
	if bonusCoins <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	days := s.clock.Days()
	var out models.Wallet
	err := s.run(ctx, "streak_bonus", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		if err := s.awardStreakBonus(tx, w, streakCount, bonusCoins, days.Today, fx); err != nil {
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

func (s *LedgerService) awardStreakBonus(tx repository.Tx, w *models.Wallet, streakCount int, bonusCoins int64, day string, fx *effects) error {
	if err := s.persist(tx, w, rules.StreakBonus(streakCount, bonusCoins), day, fx); err != nil {
		return err
	}
	fx.notify(notice{
		userID: w.UserID,
		kind:   domain.NotifyStreakBonus,
		title:  "Streak bonus",
		body:   fmt.Sprintf("%d days in a row! You earned %d coins", streakCount, bonusCoins),
		data:   map[string]interface{}{"streak": streakCount, "coins": bonusCoins},
	})
	return nil
}

type CheckInResult struct {
	State        string            `json:"state"`
	Streak       models.UserStreak `json:"streak"`
	BonusAwarded int64             `json:"bonus_awarded"`
	Wallet       models.Wallet     `json:"wallet"`
}

// CheckIn runs the streak tracker for today. A second call on the same day
// observes ActiveToday and changes nothing.
func (s *LedgerService) CheckIn(ctx context.Context, userID uint) (*CheckInResult, error) {
	days := s.clock.Days()
	var out CheckInResult
	err := s.run(ctx, "check_in", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(userID)
		if err != nil {
			return err
		}
		st, err := tx.GetStreak(userID)
		if errors.Is(err, domain.ErrNotFound) {
			st = &models.UserStreak{UserID: userID}
		} else if err != nil {
			return err
		}

		var cur *rules.Streak
		if st.LastLoginDate != nil {
			cur = &rules.Streak{Current: st.CurrentStreak, Longest: st.LongestStreak, LastLoginDate: *st.LastLoginDate}
		}
		t := rules.NextStreak(cur, rules.Days{Today: days.Today, Yesterday: days.Yesterday})
		out.State = t.From.String()
		if t.Changed {
			st.CurrentStreak = t.Next.Current
			st.LongestStreak = t.Next.Longest
			last := t.Next.LastLoginDate
			st.LastLoginDate = &last
			if err := tx.SaveStreak(st); err != nil {
				return err
			}
		}
		if t.BonusAt > 0 {
			if err := s.awardStreakBonus(tx, w, t.BonusAt, domain.StreakBonusCoins, days.Today, fx); err != nil {
				return err
			}
			out.BonusAwarded = domain.StreakBonusCoins
		}
		if t.Changed {
			// publish so clients refresh daily_login eligibility
			fx.wallets[userID] = *w
		}
		out.Streak = *st
		out.Wallet = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordReferral credits the referrer once a referred user joins. A user
// can be referred only once.
func (s *LedgerService) RecordReferral(ctx context.Context, referrerID, referredID uint) (*models.Referral, error) {
	if referrerID == referredID {
		metrics.RecordLedgerOperation("referral", outcome(domain.ErrSelfReferral))
		return nil, domain.ErrSelfReferral
	}
	days := s.clock.Days()
	var out models.Referral
	err := s.run(ctx, "referral", func(tx repository.Tx, fx *effects) error {
		w, err := tx.LockWallet(referrerID)
		if err != nil {
			return err
		}
		ref := &models.Referral{ReferrerID: referrerID, ReferredUserID: referredID, RewardAmount: domain.ReferralReward}
		ok, err := tx.AddReferral(ref)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyReferred
		}
		if err := s.persist(tx, w, rules.Referral(referredID), days.Today, fx); err != nil {
			return err
		}
		fx.notify(notice{
			userID: referrerID,
			kind:   domain.NotifyReferralJoined,
			title:  "Referral joined",
			body:   fmt.Sprintf("A friend joined with your code. You earned %d", domain.ReferralReward),
			data:   map[string]interface{}{"referred_user_id": referredID, "amount": domain.ReferralReward},
		})
		out = *ref
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
