package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/testutil"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newReader(fc *testutil.FakeChain) *chain.Reader {
	return chain.NewReader(fc, testutil.HuntContract, testutil.RaffleContract)
}

func huntInfo(state chain.HuntState) chain.HuntInfo {
	start := time.Unix(1_700_000_000, 0).UTC()
	return chain.HuntInfo{
		GridWidth:         5,
		GridHeight:        5,
		RewardPerTreasure: uint256.NewInt(2_000_000_000_000_000_000),
		TreasureCount:     3,
		StartTime:         start,
		EndTime:           start.Add(24 * time.Hour),
		RaffleIDStart:     5,
		RaffleIDEnd:       13,
		ClaimDeadline:     start.Add(96 * time.Hour),
		State:             state,
	}
}

func TestHuntInfoDecodesTuple(t *testing.T) {
	fc := testutil.NewFakeChain()
	want := huntInfo(chain.HuntActive)
	fc.AddHunt(2, want)

	got, err := newReader(fc).HuntInfo(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, want.GridWidth, got.GridWidth)
	assert.Equal(t, want.TreasureCount, got.TreasureCount)
	assert.True(t, want.StartTime.Equal(got.StartTime))
	assert.True(t, want.ClaimDeadline.Equal(got.ClaimDeadline))
	assert.Equal(t, uint64(13), got.RaffleIDEnd)
	assert.Equal(t, chain.HuntActive, got.State)
	assert.Equal(t, "2", chain.FormatEther(got.RewardPerTreasure))
	assert.Equal(t, "6", chain.FormatEther(got.TotalRewards()))
	assert.Equal(t, uint64(25), got.SquareCount())
}

func TestEmptyResultIsUnavailable(t *testing.T) {
	fc := testutil.NewFakeChain()
	_, err := newReader(fc).HuntInfo(context.Background(), 99)
	assert.ErrorIs(t, err, chain.ErrRemoteReadUnavailable)
}

func TestOversizedGridIsUnavailable(t *testing.T) {
	cases := []struct {
		name          string
		width, height uint64
	}{
		{"wide", chain.MaxGridSide + 1, 1},
		{"tall", 1, chain.MaxGridSide + 1},
		{"overflowing", 1 << 32, 1 << 32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := testutil.NewFakeChain()
			info := huntInfo(chain.HuntActive)
			info.GridWidth, info.GridHeight = tc.width, tc.height
			fc.AddHunt(3, info)

			_, err := newReader(fc).HuntInfo(context.Background(), 3)
			assert.ErrorIs(t, err, chain.ErrRemoteReadUnavailable)
			_, err = newReader(fc).Snapshot(context.Background(), 3, alice)
			assert.ErrorIs(t, err, chain.ErrRemoteReadUnavailable)
		})
	}

	fc := testutil.NewFakeChain()
	info := huntInfo(chain.HuntActive)
	info.GridWidth, info.GridHeight = chain.MaxGridSide, chain.MaxGridSide
	fc.AddHunt(4, info)
	got, err := newReader(fc).HuntInfo(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(chain.MaxSquares), got.SquareCount())
}

func TestFailedCallIsUnavailable(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.FailMethods["getActiveRaffleIds"] = errors.New("rpc down")
	_, err := newReader(fc).ActiveRaffleIDs(context.Background())
	assert.ErrorIs(t, err, chain.ErrRemoteReadUnavailable)
}

func TestSnapshotSkipsRevealedWhileActive(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.AddHunt(1, huntInfo(chain.HuntActive))
	fc.Reserve(1, 7, alice)
	fc.Reserve(1, 3, bob)
	fc.Update(func(f *testutil.FakeChain) { f.Keys[alice] = 4 })

	snap, err := newReader(fc).Snapshot(context.Background(), 1, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{7, 3}, snap.Reserved)
	assert.Equal(t, uint64(2), snap.ReservedCount)
	assert.Equal(t, uint64(4), snap.KeyBalance)
	assert.True(t, snap.CanClaimBonus)
	assert.Nil(t, snap.Revealed)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, 0, fc.ViewCalls("getRevealedSquaresWithResults"))
}

func TestSnapshotReadsRevealedOnceEnded(t *testing.T) {
	fc := testutil.NewFakeChain()
	h := fc.AddHunt(1, huntInfo(chain.HuntEnded))
	fc.Update(func(*testutil.FakeChain) {
		h.Revealed = []chain.RevealedSquare{{Square: 3, IsTreasure: true, Opener: bob}}
		h.Won[alice] = []uint64{0}
	})

	snap, err := newReader(fc).Snapshot(context.Background(), 1, alice)
	require.NoError(t, err)
	require.Len(t, snap.Revealed, 1)
	assert.Equal(t, chain.RevealedSquare{Square: 3, IsTreasure: true, Opener: bob}, snap.Revealed[0])
	assert.Equal(t, []uint64{0}, snap.Treasures.Claimable)
	assert.Equal(t, 1, fc.ViewCalls("getRevealedSquaresWithResults"))
}

func TestSnapshotFailsWhenAnyReadFails(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.AddHunt(1, huntInfo(chain.HuntActive))
	fc.FailMethods["getKeyBalance"] = errors.New("timeout")

	_, err := newReader(fc).Snapshot(context.Background(), 1, alice)
	assert.ErrorIs(t, err, chain.ErrRemoteReadUnavailable)
}

func TestRaffleReads(t *testing.T) {
	fc := testutil.NewFakeChain()
	start := time.Unix(1_700_000_000, 0).UTC()
	r := fc.AddRaffle(4, chain.RaffleInfo{
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Threshold:     10,
		Reward:        uint256.NewInt(5_000_000_000_000_000_000),
		Winner:        bob,
		ClaimDeadline: start.Add(73 * time.Hour),
		State:         chain.RaffleWinnerSelected,
	})
	fc.Update(func(*testutil.FakeChain) {
		r.Participants = []common.Address{alice, bob}
		r.Info.ParticipantCount = 2
		r.Claims[bob] = chain.UserClaimStatus{IsWinner: true, CanClaimReward: true, ClaimableAmount: uint256.NewInt(5)}
	})
	rd := newReader(fc)
	ctx := context.Background()

	info, err := rd.RaffleInfo(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, chain.RaffleWinnerSelected, info.State)
	assert.Equal(t, bob, info.Winner)
	assert.Equal(t, uint64(2), info.ParticipantCount)
	assert.False(t, info.ThresholdMet())

	next, err := rd.NextRaffleID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)

	st, err := rd.UserClaimStatus(ctx, 4, bob)
	require.NoError(t, err)
	assert.True(t, st.CanClaimReward)
	assert.Equal(t, uint64(5), st.ClaimableAmount.Uint64())

	ok, err := rd.IsParticipant(ctx, 4, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ps, err := rd.Participants(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice, bob}, ps)

	active, err := rd.ActiveRaffleIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "ended", chain.HuntEnded.String())
	assert.Equal(t, "pending_vrf", chain.RafflePendingVRF.String())
	assert.True(t, chain.HuntCreated.Mutable())
	assert.False(t, chain.HuntCompleted.Mutable())
	assert.True(t, chain.HuntCompleted.Revealing())
	assert.False(t, chain.HuntActive.Revealing())
}
