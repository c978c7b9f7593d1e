// Package secret derives commit secrets from wallet signatures. A secret is
// never stored: signing the same canonical message again reproduces it.
package secret

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Signer produces a deterministic signature over a text message.
type Signer interface {
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

var ErrEmptySignature = errors.New("empty signature")

const messageTemplate = "TreasureHunt Commit\n\nHunt ID: %d\nSquare: %d\nWallet: %s\n\n" +
	"Sign this message to commit your square selection. " +
	"This signature will be used to reveal your square after the hunt ends."

// Message is the canonical text signed for (huntID, square, wallet).
func Message(huntID, square uint64, wallet common.Address) string {
	return fmt.Sprintf(messageTemplate, huntID, square, wallet.Hex())
}

// Derive asks signer for a signature over Message and hashes it. Signer
// errors are returned unwrapped so callers can match wallet sentinels.
func Derive(ctx context.Context, signer Signer, huntID, square uint64, wallet common.Address) (common.Hash, error) {
	sig, err := signer.SignMessage(ctx, []byte(Message(huntID, square, wallet)))
	if err != nil {
		return common.Hash{}, err
	}
	if len(sig) == 0 {
		return common.Hash{}, ErrEmptySignature
	}
	return keccak256(sig), nil
}

// CommitHash matches keccak256(abi.encodePacked(uint256(square), bytes32(secret))).
func CommitHash(square uint64, secret common.Hash) common.Hash {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], square)
	return keccak256(word[:], secret[:])
}

func keccak256(data ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h common.Hash
	d.Sum(h[:0])
	return h
}
