package reconcile

import (
	"context"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"

	"github.com/rs/zerolog/log"
)

// Reconciler merges the local commit store with each fresh snapshot. The
// remote reserved set always wins: a local entry for a square that is not
// reserved (or already revealed) is purged, unless it is an unconfirmed
// commit younger than the grace period. Ages are measured against the time
// the snapshot's reads started, and a confirmation recorded after that time
// is never judged by it.
type Reconciler struct {
	store *commitstore.Cache
	grace time.Duration
	now   func() time.Time
}

func NewReconciler(store *commitstore.Cache, grace time.Duration) *Reconciler {
	return &Reconciler{store: store, grace: grace, now: time.Now}
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

func (r *Reconciler) Pass(ctx context.Context, snap *chain.HuntSnapshot) *Board {
	now := r.now()
	asOf := snap.FetchedAt
	if asOf.IsZero() {
		asOf = now
	}
	reserved := make(map[uint64]bool, len(snap.Reserved))
	for _, sq := range snap.Reserved {
		reserved[sq] = true
	}
	revealed := make(map[uint64]bool, len(snap.Revealed))
	for _, rs := range snap.Revealed {
		revealed[rs.Square] = true
	}

	var kept []commitstore.Commitment
	var purged []uint64
	for _, c := range r.store.Entries(ctx, snap.HuntID, snap.Wallet) {
		switch {
		case revealed[c.Square]:
		case reserved[c.Square]:
			kept = append(kept, c)
			continue
		case c.Confirmed() && !c.ConfirmedAt.Before(asOf):
			kept = append(kept, c)
			continue
		case !c.Confirmed() && asOf.Sub(c.CreatedAt) < r.grace:
			kept = append(kept, c)
			continue
		}
		r.store.Remove(ctx, c.HuntID, c.Square, c.Wallet)
		purged = append(purged, c.Square)
	}
	if len(purged) > 0 {
		metricPurged.Add(int64(len(purged)))
		log.Info().
			Uint64("hunt_id", snap.HuntID).
			Str("wallet", snap.Wallet.Hex()).
			Interface("squares", purged).
			Msg("purged stale commitments")
	}

	b := Build(snap, kept, now)
	b.Purged = purged
	return b
}
