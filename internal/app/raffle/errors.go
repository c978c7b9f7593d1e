package raffle

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrRaffleUnavailable   = errors.New("loading")
	ErrRaffleNotFound      = errors.New("raffle_not_found")
	ErrRaffleNotJoinable   = errors.New("raffle_not_joinable")
	ErrAlreadyParticipated = errors.New("already_participated")
	ErrNothingToClaim      = errors.New("nothing_to_claim")
)
