package models

import "time"

// Video is owned by the catalog; the ledger reads OwnerID and bumps ViewCount.
type Video struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	OwnerID   *uint     `gorm:"index" json:"owner_id"`
	ViewCount int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}

type Ad struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	EarningPerView int64     `gorm:"not null" json:"earning_per_view"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	ViewCount      int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Ad) TableName() string {
	return "ads"
}
