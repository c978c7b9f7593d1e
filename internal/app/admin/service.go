package admin

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
)

const (
	TreasuryRaffle = "raffle"
	TreasuryHunt   = "hunt"
)

// Service drives the owner-only contract functions. Every operation fails
// with ErrNotAdmin unless the runner's wallet is the configured admin.
type Service struct {
	reader *chain.Reader
	calls  chain.Calls
	runner *txflow.Runner
	admin  common.Address
	now    func() time.Time
}

func NewService(reader *chain.Reader, calls chain.Calls, runner *txflow.Runner, admin common.Address) *Service {
	return &Service{reader: reader, calls: calls, runner: runner, admin: admin, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Authorized reports whether the client wallet is the admin.
func (s *Service) Authorized() bool {
	return strings.EqualFold(s.runner.Wallet().Address().Hex(), s.admin.Hex())
}

func (s *Service) guard() error {
	if !s.Authorized() {
		return ErrNotAdmin
	}
	return nil
}

func (s *Service) send(ctx context.Context, action string, build func() (wallet.Call, error)) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.runner.Do(ctx, action, func(ctx context.Context, f *txflow.Flow) error {
		call, err := build()
		if err != nil {
			return err
		}
		if _, err := f.Send(ctx, call); err != nil {
			return err
		}
		log.Info().Str("action", action).Msg("admin transaction confirmed")
		return nil
	})
}

func (s *Service) CreateRaffle(ctx context.Context, req CreateRaffleRequest) error {
	reward, err := validateRaffle(req)
	if err != nil {
		return err
	}
	return s.send(ctx, "createRaffle", func() (wallet.Call, error) {
		return s.calls.CreateRaffle(req.StartTime, req.EndTime, req.Threshold, reward)
	})
}

func validateRaffle(req CreateRaffleRequest) (*big.Int, error) {
	if req.StartTime.IsZero() || !req.StartTime.Before(req.EndTime) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidRequest)
	}
	if req.Threshold == 0 {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvalidRequest)
	}
	reward, ok := chain.ParseEther(req.Reward)
	if !ok || reward.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reward must be a positive MON amount", ErrInvalidRequest)
	}
	return reward, nil
}

// CreateHunt funds a new hunt with reward × treasures.
func (s *Service) CreateHunt(ctx context.Context, req CreateHuntRequest) error {
	params, err := validateHunt(req)
	if err != nil {
		return err
	}
	return s.send(ctx, "createTreasureHunt", func() (wallet.Call, error) {
		return s.calls.CreateTreasureHunt(params)
	})
}

func validateHunt(req CreateHuntRequest) (chain.CreateHuntParams, error) {
	switch {
	case req.GridWidth < 1 || req.GridWidth > chain.MaxGridSide, req.GridHeight < 1 || req.GridHeight > chain.MaxGridSide:
		return chain.CreateHuntParams{}, fmt.Errorf("%w: grid sides must be 1..%d", ErrInvalidRequest, chain.MaxGridSide)
	case req.TreasureCount < 1 || req.TreasureCount > req.GridWidth*req.GridHeight:
		return chain.CreateHuntParams{}, fmt.Errorf("%w: treasure count must be 1..%d", ErrInvalidRequest, req.GridWidth*req.GridHeight)
	case req.StartTime.IsZero() || !req.StartTime.Before(req.EndTime):
		return chain.CreateHuntParams{}, fmt.Errorf("%w: start must be before end", ErrInvalidRequest)
	case req.RaffleIDEnd < req.RaffleIDStart:
		return chain.CreateHuntParams{}, fmt.Errorf("%w: bonus raffle range is reversed", ErrInvalidRequest)
	}
	reward, ok := chain.ParseEther(req.RewardPerTreasure)
	if !ok || reward.Sign() <= 0 {
		return chain.CreateHuntParams{}, fmt.Errorf("%w: reward per treasure must be a positive MON amount", ErrInvalidRequest)
	}
	return chain.CreateHuntParams{
		GridWidth:         req.GridWidth,
		GridHeight:        req.GridHeight,
		TreasureCount:     req.TreasureCount,
		RewardPerTreasure: reward,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		RaffleIDStart:     req.RaffleIDStart,
		RaffleIDEnd:       req.RaffleIDEnd,
	}, nil
}

func (s *Service) raffleCheck(ctx context.Context, raffleID uint64, allowed func(PendingRaffle) bool) error {
	info, err := s.reader.RaffleInfo(ctx, raffleID)
	if err != nil {
		return unavailable(err)
	}
	if !allowed(raffleActions(raffleID, info, s.now())) {
		return ErrActionNotAvailable
	}
	return nil
}

func (s *Service) huntCheck(ctx context.Context, huntID uint64, allowed func(PendingHunt) bool) error {
	info, err := s.reader.HuntInfo(ctx, huntID)
	if err != nil {
		return unavailable(err)
	}
	if !allowed(huntActions(huntID, info, s.now())) {
		return ErrActionNotAvailable
	}
	return nil
}

func (s *Service) FinalizeRaffle(ctx context.Context, raffleID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.raffleCheck(ctx, raffleID, func(p PendingRaffle) bool { return p.CanFinalize }); err != nil {
		return err
	}
	return s.send(ctx, "finalizeRaffle", func() (wallet.Call, error) { return s.calls.FinalizeRaffle(raffleID) })
}

// CancelRaffle enables refunds for an ended raffle with participants.
func (s *Service) CancelRaffle(ctx context.Context, raffleID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.raffleCheck(ctx, raffleID, func(p PendingRaffle) bool { return p.CanCancel }); err != nil {
		return err
	}
	return s.send(ctx, "cancelEndedRaffle", func() (wallet.Call, error) { return s.calls.CancelEndedRaffle(raffleID) })
}

func (s *Service) CancelStuckRaffle(ctx context.Context, raffleID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.raffleCheck(ctx, raffleID, func(p PendingRaffle) bool { return p.CanCancelStuck }); err != nil {
		return err
	}
	return s.send(ctx, "cancelStuckRaffle", func() (wallet.Call, error) { return s.calls.CancelStuckRaffle(raffleID) })
}

func (s *Service) CompleteRaffle(ctx context.Context, raffleID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.raffleCheck(ctx, raffleID, func(p PendingRaffle) bool { return p.CanComplete }); err != nil {
		return err
	}
	return s.send(ctx, "markRaffleCompleted", func() (wallet.Call, error) { return s.calls.MarkRaffleCompleted(raffleID) })
}

func (s *Service) EndHunt(ctx context.Context, huntID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.huntCheck(ctx, huntID, func(p PendingHunt) bool { return p.CanEnd }); err != nil {
		return err
	}
	return s.send(ctx, "endTreasureHunt", func() (wallet.Call, error) { return s.calls.EndTreasureHunt(huntID) })
}

func (s *Service) CompleteHunt(ctx context.Context, huntID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.huntCheck(ctx, huntID, func(p PendingHunt) bool { return p.CanComplete }); err != nil {
		return err
	}
	return s.send(ctx, "markCompleted", func() (wallet.Call, error) { return s.calls.MarkHuntCompleted(huntID) })
}

func (s *Service) CancelHunt(ctx context.Context, huntID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.huntCheck(ctx, huntID, func(p PendingHunt) bool { return p.CanCancel }); err != nil {
		return err
	}
	return s.send(ctx, "forceCancel", func() (wallet.Call, error) { return s.calls.ForceCancelHunt(huntID) })
}

func (s *Service) Withdrawable(ctx context.Context) (*WithdrawableResponse, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	raffle, err := s.reader.RaffleWithdrawable(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	hunt, err := s.reader.HuntWithdrawable(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return &WithdrawableResponse{
		RaffleWei: raffle.Dec(),
		Raffle:    chain.FormatEther(raffle),
		HuntWei:   hunt.Dec(),
		Hunt:      chain.FormatEther(hunt),
	}, nil
}

// TreasuryTransfer withdraws amount MON from the named treasury. The amount
// may not exceed what the contract reports as withdrawable.
func (s *Service) TreasuryTransfer(ctx context.Context, req TreasuryTransferRequest) error {
	if err := s.guard(); err != nil {
		return err
	}
	amount, ok := chain.ParseEther(req.Amount)
	if !ok || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be a positive MON amount", ErrInvalidRequest)
	}

	var (
		available *uint256.Int
		err       error
		build     func() (wallet.Call, error)
	)
	switch req.Treasury {
	case TreasuryRaffle:
		available, err = s.reader.RaffleWithdrawable(ctx)
		build = func() (wallet.Call, error) { return s.calls.RaffleTreasuryTransfer(amount) }
	case TreasuryHunt:
		available, err = s.reader.HuntWithdrawable(ctx)
		build = func() (wallet.Call, error) { return s.calls.HuntTreasuryTransfer(amount) }
	default:
		return fmt.Errorf("%w: unknown treasury %q", ErrInvalidRequest, req.Treasury)
	}
	if err != nil {
		return unavailable(err)
	}
	if amount.Cmp(available.ToBig()) > 0 {
		return ErrExceedsWithdrawable
	}
	return s.send(ctx, "treasuryTransfer", build)
}

// Pending lists active raffles and hunts with at least one admin action
// available now.
func (s *Service) Pending(ctx context.Context) (*PendingResponse, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	now := s.now()
	out := &PendingResponse{Raffles: []PendingRaffle{}, Hunts: []PendingHunt{}}

	raffleIDs, err := s.reader.ActiveRaffleIDs(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	for _, id := range raffleIDs {
		info, err := s.reader.RaffleInfo(ctx, id)
		if err != nil {
			return nil, unavailable(err)
		}
		if p := raffleActions(id, info, now); p.actionable() {
			out.Raffles = append(out.Raffles, p)
		}
	}

	huntIDs, err := s.reader.ActiveHuntIDs(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	for _, id := range huntIDs {
		info, err := s.reader.HuntInfo(ctx, id)
		if err != nil {
			return nil, unavailable(err)
		}
		if p := huntActions(id, info, now); p.actionable() {
			out.Hunts = append(out.Hunts, p)
		}
	}
	return out, nil
}

func (s *Service) Flow() txflow.Status { return s.runner.Status() }

func unavailable(err error) error {
	if errors.Is(err, chain.ErrRemoteReadUnavailable) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
