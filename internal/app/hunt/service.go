package hunt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"
	"treasure-raffle/internal/poller"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/secret"
	"treasure-raffle/internal/stream"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

const (
	minKeyPurchase = 1
	maxKeyPurchase = 100

	FlowsTopic = "flows"
)

// Topic is the stream topic carrying board updates for huntID.
func Topic(huntID uint64) string {
	return "hunt:" + strconv.FormatUint(huntID, 10)
}

type Deps struct {
	Reader     *chain.Reader
	Calls      chain.Calls
	Commits    *commitstore.Cache
	Reconciler *reconcile.Reconciler
	Runner     *txflow.Runner
	// Hub and Poller are optional; the revealer runs without them.
	Hub    *stream.Hub
	Poller *poller.Poller
}

type Service struct {
	reader  *chain.Reader
	calls   chain.Calls
	commits *commitstore.Cache
	recon   *reconcile.Reconciler
	runner  *txflow.Runner
	hub     *stream.Hub
	poller  *poller.Poller
}

func NewService(d Deps) *Service {
	s := &Service{
		reader:  d.Reader,
		calls:   d.Calls,
		commits: d.Commits,
		recon:   d.Reconciler,
		runner:  d.Runner,
		hub:     d.Hub,
		poller:  d.Poller,
	}
	if s.hub != nil {
		s.runner.OnChange(func(st txflow.Status) {
			s.hub.Publish(FlowsTopic, "flow", FlowView(st))
		})
	}
	return s
}

func (s *Service) Wallet() common.Address { return s.runner.Wallet().Address() }

func (s *Service) Flow() FlowResponse { return FlowView(s.runner.Status()) }

func (s *Service) ActiveHunts(ctx context.Context) (*HuntsResponse, error) {
	ids, err := s.reader.ActiveHuntIDs(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	now := s.commits.Now()
	out := make([]HuntItem, 0, len(ids))
	for _, id := range ids {
		info, err := s.reader.HuntInfo(ctx, id)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, huntItem(id, info, reconcile.HuntPhase(info, now)))
	}
	return &HuntsResponse{Items: out}, nil
}

// Board takes a fresh snapshot and reconciles it with the commit store.
// Nothing is derived when any remote read fails.
func (s *Service) Board(ctx context.Context, huntID uint64) (*reconcile.Board, error) {
	snap, err := s.reader.Snapshot(ctx, huntID, s.Wallet())
	if err != nil {
		return nil, unavailable(err)
	}
	return s.recon.Pass(ctx, snap), nil
}

// Refresh rebuilds the board and publishes it to the hunt's stream topic.
func (s *Service) Refresh(ctx context.Context, huntID uint64) (*reconcile.Board, error) {
	b, err := s.Board(ctx, huntID)
	if err != nil {
		if s.hub != nil {
			s.hub.Publish(Topic(huntID), "loading", map[string]string{"error": ErrBoardUnavailable.Error()})
		}
		return nil, err
	}
	if s.hub != nil {
		s.hub.Publish(Topic(huntID), "board", BoardView(b))
	}
	return b, nil
}

// Watch keeps the hunt's board refreshed on the poll interval until the
// returned func is called or the hunt can no longer change.
func (s *Service) Watch(huntID uint64) (func(), error) {
	if s.poller == nil {
		return func() {}, nil
	}
	return s.poller.Watch(Topic(huntID), func(ctx context.Context) bool {
		b, err := s.Refresh(ctx, huntID)
		if err != nil {
			log.Warn().Err(err).Uint64("hunt_id", huntID).Msg("board refresh failed")
			return true
		}
		return b.Info.State.Mutable()
	})
}

// Commit reserves square for the wallet. The local commitment is recorded
// before broadcast and rolled back if the transaction is not accepted or
// reverts.
func (s *Service) Commit(ctx context.Context, huntID, square uint64) error {
	return s.runner.Do(ctx, "commitSquare", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		if err := commitCheck(b, square); err != nil {
			return err
		}

		w := f.Wallet()
		addr := w.Address()
		sec, err := secret.Derive(ctx, w, huntID, square, addr)
		if err != nil {
			return err
		}
		call, err := s.calls.CommitSquare(huntID, square, secret.CommitHash(square, sec))
		if err != nil {
			return err
		}

		s.commits.Record(ctx, huntID, square, addr)
		hash, err := f.Submit(ctx, call)
		if err != nil {
			s.commits.Remove(ctx, huntID, square, addr)
			return err
		}
		if _, err := f.Wait(ctx, hash); err != nil {
			// An unknown outcome keeps the pending entry for reconciliation.
			if errors.Is(err, wallet.ErrTransactionReverted) {
				s.commits.Remove(ctx, huntID, square, addr)
			}
			return err
		}
		s.commits.Confirm(ctx, huntID, square, addr, hash)
		log.Info().Uint64("hunt_id", huntID).Uint64("square", square).Str("tx", hash.Hex()).Msg("square committed")
		s.afterConfirm(ctx, huntID)
		return nil
	})
}

func commitCheck(b *reconcile.Board, square uint64) error {
	sq, ok := b.Square(square)
	switch {
	case !ok:
		return ErrSquareOutOfRange
	case b.Info.State != chain.HuntActive:
		return ErrHuntNotActive
	case b.KeyBalance < 1:
		return ErrNoKeys
	case !sq.Committable:
		return ErrSquareNotCommittable
	}
	return nil
}

func (s *Service) Reveal(ctx context.Context, huntID, square uint64) error {
	return s.runner.Do(ctx, "revealSquare", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		sq, ok := b.Square(square)
		if !ok {
			return ErrSquareOutOfRange
		}
		if !sq.Revealable {
			return ErrSquareNotRevealable
		}
		err = s.reveal(ctx, f, huntID, square)
		s.afterConfirm(ctx, huntID)
		return err
	})
}

// RevealAll reveals every revealable square in order, waiting for each
// confirmation before asking for the next signature. The first failure
// ends the run.
func (s *Service) RevealAll(ctx context.Context, huntID uint64) (*RevealAllResult, error) {
	res := &RevealAllResult{Revealed: []uint64{}, Remaining: []uint64{}}
	err := s.runner.Do(ctx, "revealAll", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		if len(b.Revealable) == 0 {
			return ErrNothingToReveal
		}
		defer s.afterConfirm(ctx, huntID)
		for i, square := range b.Revealable {
			if err := s.reveal(ctx, f, huntID, square); err != nil {
				res.Remaining = append(res.Remaining, b.Revealable[i:]...)
				return err
			}
			res.Revealed = append(res.Revealed, square)
			if s.hub != nil {
				s.hub.Publish(Topic(huntID), "reveal_progress", revealProgress{Square: square, Done: i + 1, Total: len(b.Revealable)})
			}
		}
		return nil
	})
	return res, err
}

func (s *Service) reveal(ctx context.Context, f *txflow.Flow, huntID, square uint64) error {
	w := f.Wallet()
	addr := w.Address()
	sec, err := secret.Derive(ctx, w, huntID, square, addr)
	if err != nil {
		return err
	}
	call, err := s.calls.RevealSquare(huntID, square, sec)
	if err != nil {
		return err
	}
	if _, err := f.Send(ctx, call); err != nil {
		return err
	}
	s.commits.Remove(ctx, huntID, square, addr)
	log.Info().Uint64("hunt_id", huntID).Uint64("square", square).Msg("square revealed")
	return nil
}

func (s *Service) ClaimTreasure(ctx context.Context, huntID, treasureIndex uint64) error {
	return s.runner.Do(ctx, "claimTreasure", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		if !claimable(b, treasureIndex) {
			return ErrNothingToClaim
		}
		err = s.claim(ctx, f, huntID, treasureIndex)
		s.afterConfirm(ctx, huntID)
		return err
	})
}

// ClaimAll claims every claimable treasure of the hunt in order.
func (s *Service) ClaimAll(ctx context.Context, huntID uint64) (*ClaimAllResult, error) {
	res := &ClaimAllResult{Claimed: []uint64{}, Remaining: []uint64{}}
	err := s.runner.Do(ctx, "claimAll", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		if len(b.Claimable) == 0 {
			return ErrNothingToClaim
		}
		defer s.afterConfirm(ctx, huntID)
		for i, item := range b.Claimable {
			if err := s.claim(ctx, f, huntID, item.TreasureIndex); err != nil {
				for _, rest := range b.Claimable[i:] {
					res.Remaining = append(res.Remaining, rest.TreasureIndex)
				}
				return err
			}
			res.Claimed = append(res.Claimed, item.TreasureIndex)
		}
		return nil
	})
	return res, err
}

func (s *Service) claim(ctx context.Context, f *txflow.Flow, huntID, treasureIndex uint64) error {
	call, err := s.calls.ClaimTreasure(huntID, treasureIndex)
	if err != nil {
		return err
	}
	if _, err := f.Send(ctx, call); err != nil {
		return err
	}
	log.Info().Uint64("hunt_id", huntID).Uint64("treasure", treasureIndex).Msg("treasure claimed")
	return nil
}

func claimable(b *reconcile.Board, treasureIndex uint64) bool {
	for _, it := range b.Claimable {
		if it.TreasureIndex == treasureIndex {
			return true
		}
	}
	return false
}

// BuyKeys pays mon whole MON for keys.
func (s *Service) BuyKeys(ctx context.Context, mon uint64) error {
	if mon < minKeyPurchase || mon > maxKeyPurchase {
		return ErrInvalidKeyAmount
	}
	return s.runner.Do(ctx, "buyKeys", func(ctx context.Context, f *txflow.Flow) error {
		call, err := s.calls.BuyKeys(mon)
		if err != nil {
			return err
		}
		_, err = f.Send(ctx, call)
		return err
	})
}

func (s *Service) ClaimBonusKey(ctx context.Context, huntID uint64) error {
	return s.runner.Do(ctx, "claimBonusKey", func(ctx context.Context, f *txflow.Flow) error {
		b, err := s.Board(ctx, huntID)
		if err != nil {
			return err
		}
		if !b.CanClaimBonus {
			return ErrBonusUnavailable
		}
		call, err := s.calls.ClaimBonusKey(huntID)
		if err != nil {
			return err
		}
		if _, err := f.Send(ctx, call); err != nil {
			return err
		}
		s.afterConfirm(ctx, huntID)
		return nil
	})
}

func (s *Service) afterConfirm(ctx context.Context, huntID uint64) {
	if _, err := s.Refresh(ctx, huntID); err != nil {
		log.Debug().Err(err).Uint64("hunt_id", huntID).Msg("refresh after transaction")
	}
}

func unavailable(err error) error {
	if errors.Is(err, chain.ErrRemoteReadUnavailable) {
		return fmt.Errorf("%w: %w", ErrBoardUnavailable, err)
	}
	return err
}
