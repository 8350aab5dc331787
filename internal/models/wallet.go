package models

import "time"

// Wallet is the per-user aggregate. Its row doubles as the user's lock:
// every ledger operation selects it FOR UPDATE before reading anything else.
type Wallet struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Coins          int64     `gorm:"not null;default:0" json:"coins"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	TotalEarned    int64     `gorm:"not null;default:0" json:"total_earned"`
	TotalWithdrawn int64     `gorm:"not null;default:0" json:"total_withdrawn"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
