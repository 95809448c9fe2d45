package ledger

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("account not found")
	ErrSameAccount       = errors.New("cannot transfer to the same account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateNickname = errors.New("nickname already in use")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
