package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is a contract invocation the wallet signs and broadcasts.
type Call struct {
	Action string
	To     common.Address
	Data   []byte
	Value  *big.Int
}

// Wallet is the provider every flow goes through. Implementations must
// return ErrSigningDeclined when the holder refuses a request.
type Wallet interface {
	Address() common.Address
	ChainID() *big.Int
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SendTransaction(ctx context.Context, call Call) (common.Hash, error)
	// WaitConfirmed blocks until the transaction is mined. A failed receipt
	// is reported as ErrTransactionReverted.
	WaitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
