package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	historyDefaultRows = 24
	historyMaxRows     = 100
	startTimeLayout    = "Jan 2, 2006 15:04 MST"
)

type Config struct {
	EntryFee *big.Int
	// Draw eligibility counts participations in raffles DrawFrom..DrawTo.
	DrawFrom uint64
	DrawTo   uint64
	DrawMin  int
}

type Service struct {
	reader *chain.Reader
	calls  chain.Calls
	runner *txflow.Runner
	cfg    Config
	now    func() time.Time
}

func NewService(reader *chain.Reader, calls chain.Calls, runner *txflow.Runner, cfg Config) *Service {
	if cfg.EntryFee == nil {
		cfg.EntryFee = chain.WholeMON(1)
	}
	return &Service{reader: reader, calls: calls, runner: runner, cfg: cfg, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) address() common.Address { return s.runner.Wallet().Address() }

// RaffleStatus is the headline for info at now: pending before the start,
// ended after the end or once the raffle left Created/Active, live otherwise.
func RaffleStatus(info chain.RaffleInfo, now time.Time) Status {
	switch {
	case now.Before(info.StartTime):
		return Status{Status: "pending", Text: "Raffle starts at " + info.StartTime.UTC().Format(startTimeLayout)}
	case now.After(info.EndTime), info.State != chain.RaffleCreated && info.State != chain.RaffleActive:
		return Status{Status: "ended", Text: "No Live Raffle available"}
	default:
		return Status{Status: "live", Text: "● LIVE", CanJoin: true}
	}
}

// Overview shows the first active raffle and the one before it. With no
// active raffle the latest raffle is shown as previous.
func (s *Service) Overview(ctx context.Context) (*OverviewResponse, error) {
	active, err := s.reader.ActiveRaffleIDs(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	next, err := s.reader.NextRaffleID(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	out := &OverviewResponse{
		Status:      Status{Status: "none", Text: "No Live Raffle available"},
		EntryFeeWei: s.cfg.EntryFee.String(),
		EntryFee:    chain.FormatEther(uint256.MustFromBig(s.cfg.EntryFee)),
	}
	var prevID uint64
	switch {
	case len(active) > 0:
		currentID := active[0]
		info, err := s.reader.RaffleInfo(ctx, currentID)
		if err != nil {
			return nil, unavailable(err)
		}
		item := raffleItem(currentID, info)
		out.Current = &item
		out.Status = RaffleStatus(info, s.now())
		joined, err := s.reader.IsParticipant(ctx, currentID, s.address())
		if err != nil {
			return nil, unavailable(err)
		}
		out.HasParticipated = joined
		prevID = currentID - 1
	case next > 1:
		prevID = next - 1
	}
	if prevID > 0 {
		info, err := s.reader.RaffleInfo(ctx, prevID)
		if err != nil {
			return nil, unavailable(err)
		}
		item := raffleItem(prevID, info)
		out.Previous = &item
	}
	return out, nil
}

// History lists ended raffles, newest first, with aggregate stats over the
// same window.
func (s *Service) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	switch {
	case limit <= 0:
		limit = historyDefaultRows
	case limit > historyMaxRows:
		limit = historyMaxRows
	}
	next, err := s.reader.NextRaffleID(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	var ids []uint64
	for id := next; id > 1 && len(ids) < limit; id-- {
		ids = append(ids, id-1)
	}

	infos := make([]chain.RaffleInfo, len(ids))
	participants := make([][]common.Address, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			info, err := s.reader.RaffleInfo(gctx, id)
			if err != nil {
				return err
			}
			infos[i] = info
			p, err := s.reader.Participants(gctx, id)
			participants[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}

	now := s.now()
	out := &HistoryResponse{Items: make([]RaffleItem, 0, len(ids))}
	unique := make(map[string]struct{})
	rewards := new(uint256.Int)
	var entries uint64
	for i, id := range ids {
		info := infos[i]
		entries += info.ParticipantCount
		for _, p := range participants[i] {
			unique[strings.ToLower(p.Hex())] = struct{}{}
		}
		if info.State == chain.RaffleCompleted && info.Winner != (common.Address{}) && info.Reward != nil {
			rewards.Add(rewards, info.Reward)
		}
		if now.Before(info.EndTime) {
			continue
		}
		out.Items = append(out.Items, raffleItem(id, info))
	}
	out.Stats = HistoryStats{
		Raffles:            len(ids),
		UniqueParticipants: len(unique),
		TotalEntries:       entries,
		TotalRewards:       chain.FormatEther(rewards),
	}
	if len(ids) > 0 {
		out.Stats.AvgParticipants = entries / uint64(len(ids))
	}
	return out, nil
}

// Join pays the entry fee for raffleID once the raffle is live and the
// wallet has not joined yet.
func (s *Service) Join(ctx context.Context, raffleID uint64) error {
	return s.runner.Do(ctx, "joinRaffle", func(ctx context.Context, f *txflow.Flow) error {
		info, err := s.reader.RaffleInfo(ctx, raffleID)
		if err != nil {
			return unavailable(err)
		}
		if info.State != chain.RaffleActive || !RaffleStatus(info, s.now()).CanJoin {
			return ErrRaffleNotJoinable
		}
		joined, err := s.reader.IsParticipant(ctx, raffleID, f.Wallet().Address())
		if err != nil {
			return unavailable(err)
		}
		if joined {
			return ErrAlreadyParticipated
		}
		call, err := s.calls.JoinRaffle(raffleID, s.cfg.EntryFee)
		if err != nil {
			return err
		}
		if _, err := f.Send(ctx, call); err != nil {
			return err
		}
		log.Info().Uint64("raffle_id", raffleID).Msg("raffle joined")
		return nil
	})
}

// Claimables lists the reward and refund items across active raffles.
func (s *Service) Claimables(ctx context.Context) ([]reconcile.ClaimableItem, error) {
	ids, err := s.reader.ActiveRaffleIDs(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	items := make([]reconcile.ClaimableItem, len(ids))
	user := s.address()
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			item, err := s.claimable(gctx, id, user)
			items[i] = item
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}
	out := items[:0]
	for _, it := range items {
		if it.Kind != reconcile.ClaimNone {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Service) claimable(ctx context.Context, raffleID uint64, user common.Address) (reconcile.ClaimableItem, error) {
	st, err := s.reader.UserClaimStatus(ctx, raffleID, user)
	if err != nil {
		return reconcile.ClaimableItem{}, err
	}
	info, err := s.reader.RaffleInfo(ctx, raffleID)
	if err != nil {
		return reconcile.ClaimableItem{}, err
	}
	return reconcile.RaffleClaimable(raffleID, st, info), nil
}

func (s *Service) ClaimablesView(ctx context.Context) (*ClaimablesResponse, error) {
	items, err := s.Claimables(ctx)
	if err != nil {
		return nil, err
	}
	return &ClaimablesResponse{Items: hunt.ClaimableViews(items)}, nil
}

// Claim calls claimReward or claimRefund depending on what raffleID owes
// the wallet.
func (s *Service) Claim(ctx context.Context, raffleID uint64) (reconcile.ClaimKind, error) {
	var kind reconcile.ClaimKind
	err := s.runner.Do(ctx, "claimRaffle", func(ctx context.Context, f *txflow.Flow) error {
		item, err := s.claimable(ctx, raffleID, f.Wallet().Address())
		if err != nil {
			return unavailable(err)
		}
		kind = item.Kind
		var call wallet.Call
		switch item.Kind {
		case reconcile.ClaimReward:
			call, err = s.calls.ClaimReward(raffleID)
		case reconcile.ClaimRefund:
			call, err = s.calls.ClaimRefund(raffleID)
		default:
			return ErrNothingToClaim
		}
		if err != nil {
			return err
		}
		if _, err := f.Send(ctx, call); err != nil {
			return err
		}
		log.Info().Uint64("raffle_id", raffleID).Str("kind", item.Kind.String()).Msg("raffle claimed")
		return nil
	})
	return kind, err
}

// DrawEligibility counts the wallet's participations in the draw range.
// Below the requirement the result stays "Not Yet" until the range is over.
func (s *Service) DrawEligibility(ctx context.Context) (*DrawEligibility, error) {
	next, err := s.reader.NextRaffleID(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	out := &DrawEligibility{Required: s.cfg.DrawMin, RangeFrom: s.cfg.DrawFrom, RangeTo: s.cfg.DrawTo}
	if s.cfg.DrawTo < s.cfg.DrawFrom {
		return nil, fmt.Errorf("%w: draw range %d..%d", ErrInvalidRequest, s.cfg.DrawFrom, s.cfg.DrawTo)
	}

	user := s.address()
	joined := make([]bool, s.cfg.DrawTo-s.cfg.DrawFrom+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := range joined {
		id := s.cfg.DrawFrom + uint64(i)
		g.Go(func() error {
			ok, err := s.reader.IsParticipant(gctx, id, user)
			joined[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}
	for _, ok := range joined {
		if ok {
			out.Participations++
		}
	}

	latest := uint64(0)
	if next > 0 {
		latest = next - 1
	}
	switch {
	case out.Participations >= s.cfg.DrawMin:
		out.Status = "Eligible"
	case latest > s.cfg.DrawTo:
		out.Status = "Not Eligible"
	default:
		out.Status = "Not Yet"
	}
	return out, nil
}

func (s *Service) Flow() hunt.FlowResponse { return hunt.FlowView(s.runner.Status()) }

func unavailable(err error) error {
	if errors.Is(err, chain.ErrRemoteReadUnavailable) {
		return fmt.Errorf("%w: %w", ErrRaffleUnavailable, err)
	}
	return err
}
