package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
)

// Backend is the part of ethclient.Client the key wallet needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// KeyWallet signs with a local secp256k1 key and broadcasts EIP-1559
// transactions through Backend.
type KeyWallet struct {
	key            *ecdsa.PrivateKey
	address        common.Address
	chainID        *big.Int
	backend        Backend
	receiptTimeout time.Duration
}

// NewKeyWallet parses hexKey. A positive receiptTimeout bounds every
// WaitConfirmed on top of the caller's context.
func NewKeyWallet(hexKey string, chainID int64, backend Backend, receiptTimeout time.Duration) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &KeyWallet{
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		backend:        backend,
		receiptTimeout: receiptTimeout,
	}, nil
}

func (w *KeyWallet) Address() common.Address { return w.address }

func (w *KeyWallet) ChainID() *big.Int { return new(big.Int).Set(w.chainID) }

// SignMessage produces an EIP-191 personal_sign signature with v in {27, 28}.
func (w *KeyWallet) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), w.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (w *KeyWallet) SendTransaction(ctx context.Context, call Call) (common.Hash, error) {
	tx, err := w.buildTx(ctx, call)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign: %v", ErrSubmissionFailed, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	log.Info().
		Str("action", call.Action).
		Str("tx_hash", signed.Hash().Hex()).
		Uint64("nonce", signed.Nonce()).
		Msg("transaction broadcast")
	return signed.Hash(), nil
}

func (w *KeyWallet) buildTx(ctx context.Context, call Call) (*types.Transaction, error) {
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("tip cap: %w", err)
	}
	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas / 5

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	}), nil
}

// WaitConfirmed blocks until the receipt is available. A reverted receipt is
// returned together with ErrTransactionReverted.
func (w *KeyWallet) WaitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if w.receiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.receiptTimeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(ctx, w.backend, hash)
	if err != nil {
		log.Debug().Err(err).Str("tx_hash", hash.Hex()).Msg("receipt wait ended")
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
	}
	return receipt, nil
}
