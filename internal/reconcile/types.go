package reconcile

import (
	"time"

	"treasure-raffle/internal/chain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type SquareStatus uint8

const (
	Open SquareStatus = iota
	OwnReserved
	ForeignReserved
	Revealed
)

func (s SquareStatus) String() string {
	switch s {
	case Open:
		return "open"
	case OwnReserved:
		return "own_reserved"
	case ForeignReserved:
		return "foreign_reserved"
	case Revealed:
		return "revealed"
	default:
		return "unknown"
	}
}

type Square struct {
	Index       uint64
	Label       string
	Status      SquareStatus
	IsTreasure  bool
	Opener      common.Address
	Pending     bool
	Committable bool
	Revealable  bool
}

type ClaimKind uint8

const (
	ClaimNone ClaimKind = iota
	ClaimReward
	ClaimRefund
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimReward:
		return "reward"
	case ClaimRefund:
		return "refund"
	default:
		return "none"
	}
}

type ClaimSource string

const (
	SourceRaffle ClaimSource = "raffle"
	SourceHunt   ClaimSource = "hunt"
)

// ClaimableItem is derived on every poll and never stored.
type ClaimableItem struct {
	Source        ClaimSource
	ID            uint64
	Kind          ClaimKind
	Amount        *uint256.Int
	Deadline      time.Time
	TreasureIndex uint64
}

type Phase struct {
	Status string
	Text   string
}

type Discovery struct {
	Square uint64
	Label  string
	Finder common.Address
	Reward *uint256.Int
}

// Board is the reconciled view of one snapshot for one wallet.
type Board struct {
	HuntID        uint64
	Wallet        common.Address
	Info          chain.HuntInfo
	Phase         Phase
	Squares       []Square
	ReservedCount uint64
	KeyBalance    uint64
	CanClaimBonus bool
	CanCommit     bool

	OwnSquares     []uint64
	PendingSquares []uint64
	Revealable     []uint64
	Claimable      []ClaimableItem
	Discoveries    []Discovery
	Purged         []uint64

	FetchedAt time.Time
}

// Square returns the square at index, if it is on the grid.
func (b *Board) Square(index uint64) (Square, bool) {
	if index >= uint64(len(b.Squares)) {
		return Square{}, false
	}
	return b.Squares[index], true
}
