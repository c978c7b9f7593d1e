package wallet

import "errors"

var (
	ErrSigningDeclined     = errors.New("signing_declined")
	ErrSubmissionFailed    = errors.New("submission_failed")
	ErrTransactionReverted = errors.New("transaction_reverted")
)
