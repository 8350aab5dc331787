package models

import "time"

type WithdrawalRequest struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Reference     string     `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	Amount        int64      `gorm:"not null" json:"amount"`
	AccountHolder string     `gorm:"size:128;not null" json:"account_holder"`
	AccountNumber string     `gorm:"size:34;not null" json:"account_number"`
	IFSCCode      string     `gorm:"size:11;not null" json:"ifsc_code"`
	BankName      string     `gorm:"size:128" json:"bank_name"`
	Status        string     `gorm:"size:20;not null;index" json:"status"` // pending, approved, rejected
	AdminNotes    string     `gorm:"type:text" json:"admin_notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
