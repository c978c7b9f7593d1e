package chain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type HuntState uint8

const (
	HuntCreated HuntState = iota
	HuntActive
	HuntEnded
	HuntCompleted
	HuntCancelled
)

func (s HuntState) String() string {
	switch s {
	case HuntCreated:
		return "created"
	case HuntActive:
		return "active"
	case HuntEnded:
		return "ended"
	case HuntCompleted:
		return "completed"
	case HuntCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Mutable reports whether later polls can still observe a different state.
func (s HuntState) Mutable() bool {
	return s == HuntCreated || s == HuntActive || s == HuntEnded
}

// Revealing reports whether revealed squares are readable.
func (s HuntState) Revealing() bool {
	return s == HuntEnded || s == HuntCompleted
}

type RaffleState uint8

const (
	RaffleCreated RaffleState = iota
	RaffleActive
	RafflePendingVRF
	RaffleWinnerSelected
	RaffleRefundsEnabled
	RaffleCompleted
	RaffleCancelled
)

func (s RaffleState) String() string {
	switch s {
	case RaffleCreated:
		return "created"
	case RaffleActive:
		return "active"
	case RafflePendingVRF:
		return "pending_vrf"
	case RaffleWinnerSelected:
		return "winner_selected"
	case RaffleRefundsEnabled:
		return "refunds_enabled"
	case RaffleCompleted:
		return "completed"
	case RaffleCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Grid bounds accepted from the hunt contract. Anything larger is treated as
// a bad read rather than allocated.
const (
	MaxGridSide = 100
	MaxSquares  = 10_000
)

type HuntInfo struct {
	GridWidth         uint64
	GridHeight        uint64
	RewardPerTreasure *uint256.Int
	TreasureCount     uint64
	StartTime         time.Time
	EndTime           time.Time
	RaffleIDStart     uint64
	RaffleIDEnd       uint64
	TreasuresFound    uint64
	TreasuresClaimed  uint64
	ClaimDeadline     time.Time
	State             HuntState
}

func (h HuntInfo) checkGrid() error {
	if h.GridWidth > MaxGridSide || h.GridHeight > MaxGridSide || h.GridWidth*h.GridHeight > MaxSquares {
		return fmt.Errorf("grid %dx%d exceeds %dx%d", h.GridWidth, h.GridHeight, MaxGridSide, MaxGridSide)
	}
	return nil
}

func (h HuntInfo) SquareCount() uint64 {
	return h.GridWidth * h.GridHeight
}

// TotalRewards is RewardPerTreasure × TreasureCount.
func (h HuntInfo) TotalRewards() *uint256.Int {
	if h.RewardPerTreasure == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Mul(h.RewardPerTreasure, uint256.NewInt(h.TreasureCount))
}

type RevealedSquare struct {
	Square     uint64
	IsTreasure bool
	Opener     common.Address
}

type UserHuntStatus struct {
	KeyBalance       uint64
	BonusKeyClaimed  bool
	TreasuresWon     uint64
	TreasuresClaimed uint64
}

// UserTreasures lists treasure indexes for one wallet.
type UserTreasures struct {
	Won       []uint64
	Claimable []uint64
	Claimed   []uint64
}

type RaffleInfo struct {
	StartTime         time.Time
	EndTime           time.Time
	Threshold         uint64
	Reward            *uint256.Int
	ParticipantCount  uint64
	Winner            common.Address
	VRFSequenceNumber uint64
	ClaimDeadline     time.Time
	RefundsClaimed    uint64
	State             RaffleState
}

// ThresholdMet mirrors the contract rule participants >= threshold.
func (r RaffleInfo) ThresholdMet() bool {
	return r.ParticipantCount >= r.Threshold
}

type UserClaimStatus struct {
	IsWinner        bool
	CanClaimReward  bool
	CanClaimRefund  bool
	ClaimableAmount *uint256.Int
}

// HuntSnapshot is one poll of a hunt as seen by one wallet. It is never
// mutated; the next poll replaces it.
type HuntSnapshot struct {
	HuntID        uint64
	Wallet        common.Address
	Info          HuntInfo
	Reserved      []uint64
	ReservedCount uint64
	Revealed      []RevealedSquare
	KeyBalance    uint64
	UserStatus    UserHuntStatus
	Treasures     UserTreasures
	CanClaimBonus bool
	FetchedAt     time.Time
}
