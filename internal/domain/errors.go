package domain

import "errors"

var (
	ErrAlreadyClaimed      = errors.New("reward already claimed today")
	ErrNotEligible         = errors.New("task completion condition not met")
	ErrInsufficientCoins   = errors.New("insufficient coins")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("amount below conversion minimum")
	ErrAlreadyOwned        = errors.New("reward already owned")
	ErrNotFound            = errors.New("not found")

	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrSelfReferral         = errors.New("cannot refer yourself")
	ErrAlreadyReferred      = errors.New("user already referred")
)
