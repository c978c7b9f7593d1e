package commitstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Key identifies one committed square for one wallet in one hunt.
type Key struct {
	HuntID uint64
	Square uint64
	Wallet common.Address
}

// String renders the persisted key format "<huntId>_<square>_<wallet>".
func (k Key) String() string {
	return fmt.Sprintf("%d_%d_%s", k.HuntID, k.Square, k.Wallet.Hex())
}

// Commitment is the local record that a commit transaction was attempted.
// The secret is never stored; it is re-derived from a fresh signature.
type Commitment struct {
	Key
	TxHash      common.Hash
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

func (c Commitment) Confirmed() bool {
	return c.ConfirmedAt != nil
}

// Backend persists commitments. Implementations serialize access themselves.
type Backend interface {
	// PutCommitment inserts c unless an entry with the same key exists.
	PutCommitment(ctx context.Context, c Commitment) error
	// DeleteCommitment is a no-op for a missing key.
	DeleteCommitment(ctx context.Context, key Key) error
	ListCommitments(ctx context.Context, huntID uint64, wallet common.Address) ([]Commitment, error)
	ConfirmCommitment(ctx context.Context, key Key, txHash common.Hash, at time.Time) error
}
