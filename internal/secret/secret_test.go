package secret

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keySigner struct {
	calls int
}

// Deterministic: secp256k1 signing in go-ethereum uses RFC 6979 nonces.
func (s *keySigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	s.calls++
	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		return nil, err
	}
	return crypto.Sign(crypto.Keccak256(msg), key)
}

type funcSigner func(context.Context, []byte) ([]byte, error)

func (f funcSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) { return f(ctx, msg) }

var wallet = common.HexToAddress("0x14d5aa304Af9c1aeFf1F37375f85bA0cbFb6C104")

func TestMessageIsCanonical(t *testing.T) {
	msg := Message(3, 7, wallet)
	want := "TreasureHunt Commit\n\nHunt ID: 3\nSquare: 7\nWallet: 0x14d5aa304Af9c1aeFf1F37375f85bA0cbFb6C104\n\n" +
		"Sign this message to commit your square selection. This signature will be used to reveal your square after the hunt ends."
	assert.Equal(t, want, msg)
	assert.NotEqual(t, msg, Message(3, 8, wallet))
	assert.NotEqual(t, msg, Message(4, 7, wallet))
}

func TestDeriveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	signer := &keySigner{}

	a, err := Derive(ctx, signer, 1, 7, wallet)
	require.NoError(t, err)
	b, err := Derive(ctx, signer, 1, 7, wallet)
	require.NoError(t, err)
	c, err := Derive(ctx, signer, 1, 8, wallet)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, signer.calls)
}

func TestDeriveHashesRawSignature(t *testing.T) {
	sig := []byte{0x01, 0x02, 0x03}
	got, err := Derive(context.Background(), funcSigner(func(context.Context, []byte) ([]byte, error) {
		return sig, nil
	}), 1, 1, wallet)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(sig), got)
}

func TestDerivePassesSignerErrorThrough(t *testing.T) {
	declined := errors.New("declined")
	_, err := Derive(context.Background(), funcSigner(func(context.Context, []byte) ([]byte, error) {
		return nil, declined
	}), 1, 1, wallet)
	assert.ErrorIs(t, err, declined)

	_, err = Derive(context.Background(), funcSigner(func(context.Context, []byte) ([]byte, error) {
		return nil, nil
	}), 1, 1, wallet)
	assert.ErrorIs(t, err, ErrEmptySignature)
}

func TestCommitHashMatchesEncodePacked(t *testing.T) {
	uint256T, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	bytes32T, err := abi.NewType("bytes32", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: uint256T}, {Type: bytes32T}}

	secret := crypto.Keccak256Hash([]byte("sig"))
	// Static types: abi.encode and abi.encodePacked agree for (uint256, bytes32).
	packed, err := args.Pack(new(big.Int).SetUint64(24), [32]byte(secret))
	require.NoError(t, err)

	assert.Equal(t, crypto.Keccak256Hash(packed), CommitHash(24, secret))
	assert.NotEqual(t, CommitHash(24, secret), CommitHash(23, secret))
}

func TestCommitRevealRoundTrip(t *testing.T) {
	ctx := context.Background()
	signer := &keySigner{}
	commitSecret, err := Derive(ctx, signer, 5, 12, wallet)
	require.NoError(t, err)
	commit := CommitHash(12, commitSecret)

	revealSecret, err := Derive(ctx, signer, 5, 12, wallet)
	require.NoError(t, err)
	assert.Equal(t, commit, CommitHash(12, revealSecret))
	assert.True(t, strings.HasPrefix(commit.Hex(), "0x"))
}
