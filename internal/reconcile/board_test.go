package reconcile

import (
	"context"
	"testing"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	me    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	other = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	epoch = time.Unix(1_700_000_000, 0).UTC()
)

func snapshot(state chain.HuntState, keys uint64, reserved ...uint64) *chain.HuntSnapshot {
	return &chain.HuntSnapshot{
		HuntID: 1,
		Wallet: me,
		Info: chain.HuntInfo{
			GridWidth:         5,
			GridHeight:        5,
			RewardPerTreasure: uint256.NewInt(1_000),
			TreasureCount:     3,
			StartTime:         epoch,
			EndTime:           epoch.Add(time.Hour),
			ClaimDeadline:     epoch.Add(73 * time.Hour),
			State:             state,
		},
		Reserved:      reserved,
		ReservedCount: uint64(len(reserved)),
		KeyBalance:    keys,
		FetchedAt:     epoch.Add(time.Minute),
	}
}

func commitment(square uint64, created time.Time, confirmed bool) commitstore.Commitment {
	c := commitstore.Commitment{
		Key:       commitstore.Key{HuntID: 1, Square: square, Wallet: me},
		CreatedAt: created,
	}
	if confirmed {
		at := created.Add(time.Second)
		c.ConfirmedAt = &at
	}
	return c
}

func TestClassificationPriority(t *testing.T) {
	snap := snapshot(chain.HuntEnded, 0, 1, 2, 3)
	snap.Revealed = []chain.RevealedSquare{{Square: 1, IsTreasure: true, Opener: me}}
	local := []commitstore.Commitment{commitment(1, epoch, true), commitment(2, epoch, true)}

	b := Build(snap, local, epoch.Add(2*time.Hour))
	require.Len(t, b.Squares, 25)
	assert.Equal(t, Revealed, b.Squares[1].Status)
	assert.True(t, b.Squares[1].IsTreasure)
	assert.Equal(t, OwnReserved, b.Squares[2].Status)
	assert.Equal(t, ForeignReserved, b.Squares[3].Status)
	assert.Equal(t, Open, b.Squares[4].Status)
	assert.Equal(t, []uint64{2}, b.Revealable)
	assert.Equal(t, []uint64{2}, b.OwnSquares)
}

func TestCommitEligibility(t *testing.T) {
	cases := []struct {
		name  string
		state chain.HuntState
		keys  uint64
		want  bool
	}{
		{"active with key", chain.HuntActive, 1, true},
		{"active without key", chain.HuntActive, 0, false},
		{"ended", chain.HuntEnded, 5, false},
		{"created", chain.HuntCreated, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Build(snapshot(tc.state, tc.keys, 3), nil, epoch)
			assert.Equal(t, tc.want, b.Squares[0].Committable)
			assert.False(t, b.Squares[3].Committable, "reserved square must never be committable")
		})
	}
}

func TestForeignReservedNeverEligible(t *testing.T) {
	for _, state := range []chain.HuntState{chain.HuntCreated, chain.HuntActive, chain.HuntEnded, chain.HuntCompleted} {
		b := Build(snapshot(state, 10, 0, 6, 24), nil, epoch)
		for _, idx := range []uint64{0, 6, 24} {
			sq := b.Squares[idx]
			assert.Equal(t, ForeignReserved, sq.Status)
			assert.False(t, sq.Committable, "state %s square %d", state, idx)
			assert.False(t, sq.Revealable, "state %s square %d", state, idx)
		}
		assert.Empty(t, b.Revealable)
	}
}

func TestRevealRequiresEndedAndLocalEntry(t *testing.T) {
	local := []commitstore.Commitment{commitment(7, epoch, true)}

	active := Build(snapshot(chain.HuntActive, 1, 7), local, epoch)
	assert.Equal(t, OwnReserved, active.Squares[7].Status)
	assert.False(t, active.Squares[7].Revealable)

	ended := Build(snapshot(chain.HuntEnded, 0, 7), local, epoch)
	assert.True(t, ended.Squares[7].Revealable)

	forgotten := Build(snapshot(chain.HuntEnded, 0, 7), nil, epoch)
	assert.Equal(t, ForeignReserved, forgotten.Squares[7].Status)
	assert.Empty(t, forgotten.Revealable)
}

func TestZeroReservedHuntOffersNothing(t *testing.T) {
	store := commitstore.NewCache(commitstore.NewMemory())
	r := NewReconciler(store, 10*time.Minute).WithClock(func() time.Time { return epoch.Add(2 * time.Hour) })
	snap := snapshot(chain.HuntEnded, 0)

	b := r.Pass(context.Background(), snap)
	assert.Empty(t, b.Revealable)
	assert.Empty(t, b.Claimable)
	assert.Empty(t, store.ListForWallet(context.Background(), 1, me))
	assert.Equal(t, uint64(0), b.ReservedCount)
}

func TestRevealedWithoutTreasureYieldsNoClaim(t *testing.T) {
	snap := snapshot(chain.HuntEnded, 0, 7)
	snap.Revealed = []chain.RevealedSquare{{Square: 7, IsTreasure: false, Opener: me}}

	b := Build(snap, nil, epoch)
	assert.Equal(t, Revealed, b.Squares[7].Status)
	assert.False(t, b.Squares[7].IsTreasure)
	assert.Empty(t, b.Claimable)
	assert.Empty(t, b.Discoveries)
	assert.Equal(t, "C2", b.Squares[7].Label)
}

func TestHuntClaimablesFromUserTreasures(t *testing.T) {
	snap := snapshot(chain.HuntEnded, 0)
	snap.Treasures = chain.UserTreasures{Won: []uint64{4, 1}, Claimable: []uint64{4, 1}}

	b := Build(snap, nil, epoch)
	require.Len(t, b.Claimable, 2)
	assert.Equal(t, uint64(1), b.Claimable[0].TreasureIndex)
	assert.Equal(t, ClaimReward, b.Claimable[0].Kind)
	assert.Equal(t, SourceHunt, b.Claimable[0].Source)
	assert.Equal(t, uint64(1_000), b.Claimable[0].Amount.Uint64())
	assert.True(t, b.Claimable[0].Deadline.Equal(snap.Info.ClaimDeadline))

	snap.Info.State = chain.HuntActive
	assert.Empty(t, Build(snap, nil, epoch).Claimable)
}

func TestDiscoveriesNewestFirstCapped(t *testing.T) {
	snap := snapshot(chain.HuntCompleted, 0)
	snap.Info.GridWidth, snap.Info.GridHeight = 10, 10
	for i := uint64(0); i < 14; i++ {
		snap.Revealed = append(snap.Revealed, chain.RevealedSquare{Square: i, IsTreasure: true, Opener: other})
	}
	snap.Revealed = append(snap.Revealed, chain.RevealedSquare{Square: 50, IsTreasure: false, Opener: other})

	b := Build(snap, nil, epoch)
	require.Len(t, b.Discoveries, 10)
	assert.Equal(t, uint64(13), b.Discoveries[0].Square)
	assert.Equal(t, uint64(4), b.Discoveries[9].Square)
}

func TestRaffleClaimable(t *testing.T) {
	info := chain.RaffleInfo{ClaimDeadline: epoch}
	amt := uint256.NewInt(5)

	reward := RaffleClaimable(3, chain.UserClaimStatus{CanClaimReward: true, CanClaimRefund: true, ClaimableAmount: amt}, info)
	assert.Equal(t, ClaimReward, reward.Kind)
	assert.Equal(t, SourceRaffle, reward.Source)
	assert.True(t, reward.Deadline.Equal(epoch))

	refund := RaffleClaimable(3, chain.UserClaimStatus{CanClaimRefund: true, ClaimableAmount: amt}, info)
	assert.Equal(t, ClaimRefund, refund.Kind)

	none := RaffleClaimable(3, chain.UserClaimStatus{}, info)
	assert.Equal(t, ClaimNone, none.Kind)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "A1", Label(0, 5))
	assert.Equal(t, "E1", Label(4, 5))
	assert.Equal(t, "A2", Label(5, 5))
	assert.Equal(t, "Z1", Label(25, 100))
	assert.Equal(t, "AA1", Label(26, 100))
	assert.Equal(t, "CV100", Label(9999, 100))
}

func TestHuntPhase(t *testing.T) {
	info := snapshot(chain.HuntActive, 0).Info
	assert.Equal(t, "pending", HuntPhase(info, epoch.Add(-time.Minute)).Status)
	assert.Equal(t, "live", HuntPhase(info, epoch.Add(time.Minute)).Status)
	assert.Equal(t, "closing", HuntPhase(info, epoch.Add(2*time.Hour)).Status)
	info.State = chain.HuntEnded
	assert.Equal(t, "ENDED - REVEAL PHASE", HuntPhase(info, epoch).Text)
	info.State = chain.HuntCreated
	assert.Equal(t, "PENDING VRF", HuntPhase(info, epoch).Text)
}
