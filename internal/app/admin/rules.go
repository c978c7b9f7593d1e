package admin

import (
	"time"

	"treasure-raffle/internal/chain"
)

func raffleActions(id uint64, info chain.RaffleInfo, now time.Time) PendingRaffle {
	open := info.State == chain.RaffleCreated || info.State == chain.RaffleActive
	pastEnd := now.After(info.EndTime)
	settled := info.State == chain.RaffleWinnerSelected ||
		info.State == chain.RaffleRefundsEnabled ||
		info.State == chain.RaffleCancelled
	return PendingRaffle{
		RaffleID:         id,
		State:            info.State.String(),
		ParticipantCount: info.ParticipantCount,
		EndTime:          info.EndTime,
		ClaimDeadline:    info.ClaimDeadline,
		CanFinalize:      open && pastEnd,
		CanCancel:        open && pastEnd && info.ParticipantCount > 0,
		CanCancelStuck:   info.State == chain.RafflePendingVRF,
		CanComplete:      settled && now.After(info.ClaimDeadline),
	}
}

func huntActions(id uint64, info chain.HuntInfo, now time.Time) PendingHunt {
	return PendingHunt{
		HuntID:        id,
		State:         info.State.String(),
		EndTime:       info.EndTime,
		ClaimDeadline: info.ClaimDeadline,
		CanEnd:        info.State == chain.HuntActive && now.After(info.EndTime),
		CanCancel:     info.State == chain.HuntCreated,
		CanComplete:   info.State == chain.HuntEnded && now.After(info.ClaimDeadline),
	}
}

func (p PendingRaffle) actionable() bool {
	return p.CanFinalize || p.CanCancel || p.CanCancelStuck || p.CanComplete
}

func (p PendingHunt) actionable() bool { return p.CanEnd || p.CanCancel || p.CanComplete }
