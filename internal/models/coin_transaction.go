package models

import "time"

// CoinTransaction is an append-only coin ledger entry. The sum of a user's
// amounts always equals Wallet.Coins.
type CoinTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Amount      int64     `gorm:"not null" json:"amount"`             // positive = credit, negative = debit
	Type        string    `gorm:"size:20;not null;index" json:"type"` // earned, converted, spent, bonus
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CoinTransaction) TableName() string {
	return "coin_transactions"
}
