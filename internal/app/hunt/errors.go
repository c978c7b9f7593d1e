package hunt

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrBoardUnavailable     = errors.New("loading")
	ErrSquareOutOfRange     = errors.New("square_out_of_range")
	ErrHuntNotActive        = errors.New("hunt_not_active")
	ErrNoKeys               = errors.New("no_keys")
	ErrSquareNotCommittable = errors.New("square_not_committable")
	ErrSquareNotRevealable  = errors.New("square_not_revealable")
	ErrNothingToReveal      = errors.New("nothing_to_reveal")
	ErrNothingToClaim       = errors.New("nothing_to_claim")
	ErrBonusUnavailable     = errors.New("bonus_key_unavailable")
	ErrInvalidKeyAmount     = errors.New("invalid_key_amount")
)
