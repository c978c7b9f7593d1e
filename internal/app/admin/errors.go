package admin

import "errors"

var (
	ErrNotAdmin            = errors.New("not_admin")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrUnavailable         = errors.New("loading")
	ErrActionNotAvailable  = errors.New("action_not_available")
	ErrExceedsWithdrawable = errors.New("exceeds_withdrawable")
)
