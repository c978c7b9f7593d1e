package chain

import (
	"bytes"
	_ "embed"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed abi/treasure_hunt.json
	treasureHuntABIJSON []byte
	//go:embed abi/raffle.json
	raffleABIJSON []byte

	HuntABI   = mustParseABI(treasureHuntABIJSON)
	RaffleABI = mustParseABI(raffleABIJSON)
)

func mustParseABI(raw []byte) *abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return &parsed
}
