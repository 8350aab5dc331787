package models

import "time"

// Reward is a shop catalog item bought with coins.
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CoinPrice   int64     `gorm:"not null" json:"coin_price"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Reward) TableName() string {
	return "rewards"
}

type UserReward struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_reward" json:"user_id"`
	RewardID  uint      `gorm:"not null;uniqueIndex:idx_user_reward" json:"reward_id"`
	CreatedAt time.Time `json:"created_at"`

	Reward Reward `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
}

func (UserReward) TableName() string {
	return "user_rewards"
}
