package testutil

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const fakeWalletKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// FakeWallet signs with a fixed key and mines every transaction into a
// FakeChain immediately. Knobs simulate declines, broadcast failures and
// reverts.
type FakeWallet struct {
	mu    sync.Mutex
	chain *FakeChain
	key   *ecdsa.PrivateKey
	addr  common.Address

	DeclineSign   bool
	DeclineSend   bool
	SubmitErr     error
	RevertActions map[string]bool

	Signed  int
	Sent    []wallet.Call
	nonce   uint64
	results map[common.Hash]error
	// OnSend runs after each successful broadcast, before WaitConfirmed.
	OnSend func(call wallet.Call)
}

func NewFakeWallet(c *FakeChain) *FakeWallet {
	key, err := crypto.HexToECDSA(fakeWalletKey)
	if err != nil {
		panic(err)
	}
	return &FakeWallet{
		chain:         c,
		key:           key,
		addr:          crypto.PubkeyToAddress(key.PublicKey),
		RevertActions: make(map[string]bool),
		results:       make(map[common.Hash]error),
	}
}

func (w *FakeWallet) Address() common.Address { return w.addr }

func (w *FakeWallet) ChainID() *big.Int { return big.NewInt(143) }

func (w *FakeWallet) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.DeclineSign {
		return nil, wallet.ErrSigningDeclined
	}
	w.Signed++
	sig, err := crypto.Sign(accounts.TextHash(msg), w.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (w *FakeWallet) SendTransaction(_ context.Context, call wallet.Call) (common.Hash, error) {
	w.mu.Lock()
	if w.DeclineSend {
		w.mu.Unlock()
		return common.Hash{}, wallet.ErrSigningDeclined
	}
	if w.SubmitErr != nil {
		err := w.SubmitErr
		w.mu.Unlock()
		return common.Hash{}, fmt.Errorf("%w: %v", wallet.ErrSubmissionFailed, err)
	}
	w.nonce++
	hash := crypto.Keccak256Hash(w.addr.Bytes(), new(big.Int).SetUint64(w.nonce).Bytes(), call.Data)
	w.Sent = append(w.Sent, call)
	var result error
	if w.RevertActions[call.Action] {
		result = errors.New("forced revert")
	}
	onSend := w.OnSend
	w.mu.Unlock()

	if result == nil {
		result = w.chain.Apply(w.addr, call)
	}
	w.mu.Lock()
	w.results[hash] = result
	w.mu.Unlock()
	if onSend != nil {
		onSend(call)
	}
	return hash, nil
}

func (w *FakeWallet) WaitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	result, ok := w.results[hash]
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown tx %s", hash.Hex())
	}
	if result != nil {
		return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusFailed}, fmt.Errorf("%w: %v", wallet.ErrTransactionReverted, result)
	}
	return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
}

func (w *FakeWallet) Actions() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.Sent))
	for _, c := range w.Sent {
		out = append(out, c.Action)
	}
	return out
}

func (w *FakeWallet) Set(fn func(w *FakeWallet)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}
