package models

import "time"

// Earning is an immutable currency credit.
type Earning struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index:idx_earnings_user_type_day" json:"user_id"`
	Amount      int64  `gorm:"not null" json:"amount"`
	Type        string `gorm:"size:30;not null;index:idx_earnings_user_type_day" json:"type"`
	ReferenceID string `gorm:"size:64" json:"reference_id"`
	DayKey      string `gorm:"size:10;not null;index:idx_earnings_user_type_day" json:"day_key"`
	// DedupKey is set only for earnings that must be unique, e.g.
	// video_watch:<user>:<video>:<day>. NULLs never collide.
	DedupKey  *string   `gorm:"size:128;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Earning) TableName() string {
	return "earnings"
}

// CreatorEarning is the video owner's share of an ad view.
type CreatorEarning struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatorID uint      `gorm:"not null;index" json:"creator_id"`
	AdID      uint      `gorm:"not null;index" json:"ad_id"`
	VideoID   uint      `gorm:"not null" json:"video_id"`
	ViewerID  uint      `gorm:"not null" json:"viewer_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (CreatorEarning) TableName() string {
	return "creator_earnings"
}
