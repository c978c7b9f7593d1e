package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Snapshot reads everything a board needs for one hunt and wallet. Revealed
// squares are only fetched once the hunt has ended. Any failed read fails
// the whole snapshot so no partial state is ever reconciled. FetchedAt is
// the time the first read was issued: anything recorded locally after it
// may not be reflected in the remote state.
func (r *Reader) Snapshot(ctx context.Context, huntID uint64, wallet common.Address) (*HuntSnapshot, error) {
	started := r.now()
	info, err := r.HuntInfo(ctx, huntID)
	if err != nil {
		return nil, err
	}
	snap := &HuntSnapshot{HuntID: huntID, Wallet: wallet, Info: info, FetchedAt: started}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.ReservedSquares(gctx, huntID)
		snap.Reserved = v
		return err
	})
	g.Go(func() error {
		v, err := r.ReservedSquareCount(gctx, huntID)
		snap.ReservedCount = v
		return err
	})
	g.Go(func() error {
		v, err := r.KeyBalance(gctx, wallet)
		snap.KeyBalance = v
		return err
	})
	g.Go(func() error {
		v, err := r.UserHuntStatus(gctx, huntID, wallet)
		snap.UserStatus = v
		return err
	})
	g.Go(func() error {
		v, err := r.UserTreasures(gctx, huntID, wallet)
		snap.Treasures = v
		return err
	})
	g.Go(func() error {
		v, err := r.CanClaimBonusKey(gctx, huntID, wallet)
		snap.CanClaimBonus = v
		return err
	})
	if info.State.Revealing() {
		g.Go(func() error {
			v, err := r.RevealedSquares(gctx, huntID)
			snap.Revealed = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metricSnapshots.Add(1)
	return snap, nil
}
