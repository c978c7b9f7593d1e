package chain

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Calls builds write-side calldata for both contracts.
type Calls struct {
	Hunt   common.Address
	Raffle common.Address
}

func NewCalls(hunt, raffle common.Address) Calls {
	return Calls{Hunt: hunt, Raffle: raffle}
}

func pack(to common.Address, contract *abi.ABI, value *big.Int, method string, args ...any) (wallet.Call, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return wallet.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return wallet.Call{Action: method, To: to, Data: data, Value: value}, nil
}

func (c Calls) CommitSquare(huntID, square uint64, commitHash common.Hash) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "commitSquare", u256(huntID), u256(square), [32]byte(commitHash))
}

func (c Calls) RevealSquare(huntID, square uint64, secret common.Hash) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "revealSquare", u256(huntID), u256(square), [32]byte(secret))
}

func (c Calls) ClaimTreasure(huntID, treasureIndex uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "claimTreasure", u256(huntID), u256(treasureIndex))
}

// BuyKeys pays mon whole MON; the contract mints KeysPerMON keys per MON.
func (c Calls) BuyKeys(mon uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, WholeMON(mon), "buyKeys")
}

func (c Calls) ClaimBonusKey(huntID uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "claimBonusKey", u256(huntID))
}

type CreateHuntParams struct {
	GridWidth         uint64
	GridHeight        uint64
	TreasureCount     uint64
	RewardPerTreasure *big.Int
	StartTime         time.Time
	EndTime           time.Time
	RaffleIDStart     uint64
	RaffleIDEnd       uint64
}

// CreateTreasureHunt funds the hunt with RewardPerTreasure × TreasureCount.
func (c Calls) CreateTreasureHunt(p CreateHuntParams) (wallet.Call, error) {
	if p.RewardPerTreasure == nil {
		return wallet.Call{}, errors.New("reward per treasure is required")
	}
	value := new(big.Int).Mul(p.RewardPerTreasure, u256(p.TreasureCount))
	return pack(c.Hunt, HuntABI, value, "createTreasureHunt",
		u256(p.GridWidth), u256(p.GridHeight), u256(p.TreasureCount), p.RewardPerTreasure,
		unixParam(p.StartTime), unixParam(p.EndTime), u256(p.RaffleIDStart), u256(p.RaffleIDEnd))
}

func (c Calls) EndTreasureHunt(huntID uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "endTreasureHunt", u256(huntID))
}

func (c Calls) MarkHuntCompleted(huntID uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "markCompleted", u256(huntID))
}

func (c Calls) ForceCancelHunt(huntID uint64) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "forceCancel", u256(huntID))
}

func (c Calls) HuntTreasuryTransfer(amount *big.Int) (wallet.Call, error) {
	return pack(c.Hunt, HuntABI, nil, "treasuryTransfer", amount)
}

func (c Calls) JoinRaffle(raffleID uint64, fee *big.Int) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, fee, "joinRaffle", u256(raffleID))
}

func (c Calls) ClaimReward(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "claimReward", u256(raffleID))
}

func (c Calls) ClaimRefund(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "claimRefund", u256(raffleID))
}

func (c Calls) CreateRaffle(start, end time.Time, threshold uint64, reward *big.Int) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "createRaffle", unixParam(start), unixParam(end), u256(threshold), reward)
}

func (c Calls) FinalizeRaffle(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "finalizeRaffle", u256(raffleID))
}

func (c Calls) MarkRaffleCompleted(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "markRaffleCompleted", u256(raffleID))
}

// CancelEndedRaffle enables refunds for an ended raffle that cannot finalize.
func (c Calls) CancelEndedRaffle(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "cancelEndedRaffle", u256(raffleID))
}

// CancelStuckRaffle cancels a raffle stuck waiting for VRF.
func (c Calls) CancelStuckRaffle(raffleID uint64) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "cancelStuckRaffle", u256(raffleID))
}

func (c Calls) RaffleTreasuryTransfer(amount *big.Int) (wallet.Call, error) {
	return pack(c.Raffle, RaffleABI, nil, "treasuryTransfer", amount)
}

func unixParam(t time.Time) *big.Int {
	if t.Unix() < 0 {
		return new(big.Int)
	}
	return u256(uint64(t.Unix()))
}
