package reconcile

import (
	"sort"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"
)

const maxDiscoveries = 10

// Build classifies every square of snap against the wallet's local
// commitments. Priority: Revealed, OwnReserved, ForeignReserved, Open.
// local must already be reconciled; entries whose square is not reserved
// remotely are reported as pending.
func Build(snap *chain.HuntSnapshot, local []commitstore.Commitment, now time.Time) *Board {
	info := snap.Info
	b := &Board{
		HuntID:        snap.HuntID,
		Wallet:        snap.Wallet,
		Info:          info,
		Phase:         HuntPhase(info, now),
		ReservedCount: snap.ReservedCount,
		KeyBalance:    snap.KeyBalance,
		CanClaimBonus: snap.CanClaimBonus,
		FetchedAt:     snap.FetchedAt,
	}
	b.CanCommit = info.State == chain.HuntActive && snap.KeyBalance >= 1

	reserved := make(map[uint64]bool, len(snap.Reserved))
	for _, sq := range snap.Reserved {
		reserved[sq] = true
	}
	revealed := make(map[uint64]chain.RevealedSquare, len(snap.Revealed))
	for _, r := range snap.Revealed {
		revealed[r.Square] = r
	}
	mine := make(map[uint64]bool, len(local))
	for _, c := range local {
		mine[c.Square] = true
	}

	total := info.SquareCount()
	b.Squares = make([]Square, total)
	for i := uint64(0); i < total; i++ {
		sq := Square{Index: i, Label: Label(i, info.GridWidth)}
		switch r, ok := revealed[i]; {
		case ok:
			sq.Status = Revealed
			sq.IsTreasure = r.IsTreasure
			sq.Opener = r.Opener
		case reserved[i] && mine[i]:
			sq.Status = OwnReserved
			sq.Opener = snap.Wallet
			b.OwnSquares = append(b.OwnSquares, i)
		case reserved[i]:
			sq.Status = ForeignReserved
		default:
			sq.Status = Open
			sq.Pending = mine[i]
		}
		sq.Committable = sq.Status == Open && !sq.Pending && b.CanCommit
		sq.Revealable = sq.Status == OwnReserved && info.State == chain.HuntEnded
		if sq.Pending {
			b.PendingSquares = append(b.PendingSquares, i)
		}
		if sq.Revealable {
			b.Revealable = append(b.Revealable, i)
		}
		b.Squares[i] = sq
	}

	b.Claimable = huntClaimables(snap)
	b.Discoveries = discoveries(snap)
	return b
}

func huntClaimables(snap *chain.HuntSnapshot) []ClaimableItem {
	if !snap.Info.State.Revealing() {
		return nil
	}
	idx := append([]uint64(nil), snap.Treasures.Claimable...)
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
	out := make([]ClaimableItem, 0, len(idx))
	for _, t := range idx {
		out = append(out, ClaimableItem{
			Source:        SourceHunt,
			ID:            snap.HuntID,
			Kind:          ClaimReward,
			Amount:        snap.Info.RewardPerTreasure,
			Deadline:      snap.Info.ClaimDeadline,
			TreasureIndex: t,
		})
	}
	return out
}

// discoveries lists the latest treasure reveals, newest first.
func discoveries(snap *chain.HuntSnapshot) []Discovery {
	var found []Discovery
	for _, r := range snap.Revealed {
		if !r.IsTreasure {
			continue
		}
		found = append(found, Discovery{
			Square: r.Square,
			Label:  Label(r.Square, snap.Info.GridWidth),
			Finder: r.Opener,
			Reward: snap.Info.RewardPerTreasure,
		})
	}
	if len(found) > maxDiscoveries {
		found = found[len(found)-maxDiscoveries:]
	}
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found
}

// RaffleClaimable derives the raffle item: Reward if a reward is claimable,
// else Refund if a refund is, else None.
func RaffleClaimable(raffleID uint64, status chain.UserClaimStatus, info chain.RaffleInfo) ClaimableItem {
	item := ClaimableItem{
		Source:   SourceRaffle,
		ID:       raffleID,
		Kind:     ClaimNone,
		Amount:   status.ClaimableAmount,
		Deadline: info.ClaimDeadline,
	}
	switch {
	case status.CanClaimReward:
		item.Kind = ClaimReward
	case status.CanClaimRefund:
		item.Kind = ClaimRefund
	}
	return item
}
