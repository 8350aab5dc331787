package models

import "time"

type DailyTask struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Kind         string    `gorm:"size:30;not null" json:"kind"` // watch_videos, refer_friends, login_streak, daily_login
	Target       int64     `gorm:"not null;default:1" json:"target"`
	RewardAmount int64     `gorm:"not null;default:0" json:"reward_amount"`
	RewardCoins  int64     `gorm:"not null;default:0" json:"reward_coins"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DailyTask) TableName() string {
	return "daily_tasks"
}

// UserDailyTask is a task completion for one calendar day.
type UserDailyTask struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_task_date" json:"user_id"`
	TaskID        uint      `gorm:"not null;uniqueIndex:idx_user_task_date" json:"task_id"`
	Date          string    `gorm:"size:10;not null;uniqueIndex:idx_user_task_date" json:"date"`
	TaskKind      string    `gorm:"size:30;not null;index" json:"task_kind"`
	RewardClaimed bool      `gorm:"not null;default:false" json:"reward_claimed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UserDailyTask) TableName() string {
	return "user_daily_tasks"
}
