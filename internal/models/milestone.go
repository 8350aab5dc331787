package models

import "time"

// UserMilestone records a one-time referral milestone bonus.
type UserMilestone struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_threshold" json:"user_id"`
	Threshold int64     `gorm:"not null;uniqueIndex:idx_user_threshold" json:"threshold"`
	Coins     int64     `gorm:"not null" json:"coins"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserMilestone) TableName() string {
	return "user_milestones"
}
