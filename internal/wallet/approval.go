package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Request describes what the holder is being asked to approve.
type Request struct {
	Kind    string // "sign" or "transaction"
	Action  string
	Message string
	To      common.Address
	Value   *big.Int
}

type Approver interface {
	Approve(ctx context.Context, req Request) (bool, error)
}

type ApproverFunc func(ctx context.Context, req Request) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req Request) (bool, error) { return f(ctx, req) }

type approvingWallet struct {
	Wallet
	approver Approver
}

// WithApproval gates every signature and transaction of w behind approver.
func WithApproval(w Wallet, approver Approver) Wallet {
	return &approvingWallet{Wallet: w, approver: approver}
}

func (a *approvingWallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := a.ask(ctx, Request{Kind: "sign", Message: string(msg)}); err != nil {
		return nil, err
	}
	return a.Wallet.SignMessage(ctx, msg)
}

func (a *approvingWallet) SendTransaction(ctx context.Context, call Call) (common.Hash, error) {
	req := Request{Kind: "transaction", Action: call.Action, To: call.To, Value: call.Value}
	if err := a.ask(ctx, req); err != nil {
		return common.Hash{}, err
	}
	return a.Wallet.SendTransaction(ctx, call)
}

func (a *approvingWallet) WaitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return a.Wallet.WaitConfirmed(ctx, hash)
}

func (a *approvingWallet) ask(ctx context.Context, req Request) error {
	ok, err := a.approver.Approve(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigningDeclined, err)
	}
	if !ok {
		return ErrSigningDeclined
	}
	return nil
}
