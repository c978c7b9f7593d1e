package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeBackend struct {
	mu        sync.Mutex
	sent      []*types.Transaction
	sendErr   error
	gasErr    error
	receipts  []*types.Receipt
	lookups   int
	baseFee   *big.Int
	estimated uint64
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 4, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.estimated, f.gasErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

// TransactionReceipt pops queued receipts; a nil entry means not yet mined.
func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if len(f.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	r := f.receipts[0]
	f.receipts = f.receipts[1:]
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func newTestWallet(t *testing.T, b *fakeBackend) *KeyWallet {
	t.Helper()
	w, err := NewKeyWallet(testKey, 143, b, 0)
	require.NoError(t, err)
	return w
}

func TestSignMessageRecoversAddress(t *testing.T) {
	w := newTestWallet(t, &fakeBackend{})
	msg := []byte("TreasureHunt Commit")

	sig, err := w.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	raw := append([]byte(nil), sig...)
	raw[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(msg), raw)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), crypto.PubkeyToAddress(*pub))

	again, err := w.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}

func TestSendTransactionBuildsDynamicFeeTx(t *testing.T) {
	b := &fakeBackend{baseFee: big.NewInt(50), estimated: 100_000}
	w := newTestWallet(t, b)
	to := common.HexToAddress("0x91AC7FEfB3759C36355F92eF3F3014f9aF648Bb7")

	hash, err := w.SendTransaction(context.Background(), Call{
		Action: "buyKeys",
		To:     to,
		Data:   []byte{0xde, 0xad},
		Value:  big.NewInt(7),
	})
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(4), tx.Nonce())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, big.NewInt(1_100), tx.GasFeeCap())
	assert.Equal(t, big.NewInt(7), tx.Value())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, big.NewInt(143), tx.ChainId())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(143)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from)
}

func TestSendTransactionFailures(t *testing.T) {
	w := newTestWallet(t, &fakeBackend{gasErr: errors.New("execution reverted")})
	_, err := w.SendTransaction(context.Background(), Call{To: common.HexToAddress("0x01")})
	assert.ErrorIs(t, err, ErrSubmissionFailed)

	w = newTestWallet(t, &fakeBackend{sendErr: errors.New("nonce too low")})
	_, err = w.SendTransaction(context.Background(), Call{To: common.HexToAddress("0x01")})
	assert.ErrorIs(t, err, ErrSubmissionFailed)
}

func TestWaitConfirmedPollsUntilMined(t *testing.T) {
	b := &fakeBackend{receipts: []*types.Receipt{nil, {Status: types.ReceiptStatusSuccessful}}}
	w := newTestWallet(t, b)

	r, err := w.WaitConfirmed(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, r.Status)
	assert.Equal(t, 2, b.lookups)
}

func TestWaitConfirmedReportsRevert(t *testing.T) {
	b := &fakeBackend{receipts: []*types.Receipt{{Status: types.ReceiptStatusFailed}}}
	w := newTestWallet(t, b)

	r, err := w.WaitConfirmed(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ErrTransactionReverted)
	require.NotNil(t, r)
	assert.Equal(t, types.ReceiptStatusFailed, r.Status)
}

func TestWaitConfirmedHonoursContext(t *testing.T) {
	w := newTestWallet(t, &fakeBackend{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.WaitConfirmed(ctx, common.HexToHash("0x01"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitConfirmedStopsAtReceiptTimeout(t *testing.T) {
	w, err := NewKeyWallet(testKey, 143, &fakeBackend{}, 20*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = w.WaitConfirmed(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestNewKeyWalletRejectsBadKey(t *testing.T) {
	_, err := NewKeyWallet("zz", 143, &fakeBackend{}, 0)
	assert.Error(t, err)
}
