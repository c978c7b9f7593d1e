package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Reader performs typed view calls against the hunt and raffle contracts.
type Reader struct {
	caller ethereum.ContractCaller
	hunt   common.Address
	raffle common.Address
	now    func() time.Time
}

func NewReader(caller ethereum.ContractCaller, hunt, raffle common.Address) *Reader {
	return &Reader{caller: caller, hunt: hunt, raffle: raffle, now: time.Now}
}

func (r *Reader) HuntAddress() common.Address   { return r.hunt }
func (r *Reader) RaffleAddress() common.Address { return r.raffle }

func (r *Reader) call(ctx context.Context, to common.Address, contract *abi.ABI, method string, args ...any) (*decoder, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		metricReadFailures.Add(1)
		return nil, fmt.Errorf("%w: %s: %v", ErrRemoteReadUnavailable, method, err)
	}
	if len(out) == 0 {
		metricReadFailures.Add(1)
		return nil, fmt.Errorf("%w: %s: empty result", ErrRemoteReadUnavailable, method)
	}
	vals, err := contract.Unpack(method, out)
	if err != nil {
		metricReadFailures.Add(1)
		return nil, fmt.Errorf("%w: %s: %v", ErrRemoteReadUnavailable, method, err)
	}
	metricReads.Add(1)
	return &decoder{vals: vals}, nil
}

func decodeErr(method string, err error) error {
	return fmt.Errorf("%w: decode %s: %v", ErrRemoteReadUnavailable, method, err)
}

func (r *Reader) ActiveHuntIDs(ctx context.Context) ([]uint64, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getActiveTHuntIds")
	if err != nil {
		return nil, err
	}
	ids := d.uintsAt(0)
	if d.err != nil {
		return nil, decodeErr("getActiveTHuntIds", d.err)
	}
	return ids, nil
}

func (r *Reader) HuntInfo(ctx context.Context, huntID uint64) (HuntInfo, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getTHuntInfo", u256(huntID))
	if err != nil {
		return HuntInfo{}, err
	}
	info := HuntInfo{
		GridWidth:         d.uintAt(0),
		GridHeight:        d.uintAt(1),
		RewardPerTreasure: d.amountAt(2),
		TreasureCount:     d.uintAt(3),
		StartTime:         d.timeAt(4),
		EndTime:           d.timeAt(5),
		RaffleIDStart:     d.uintAt(6),
		RaffleIDEnd:       d.uintAt(7),
		TreasuresFound:    d.uintAt(8),
		TreasuresClaimed:  d.uintAt(9),
		ClaimDeadline:     d.timeAt(10),
		State:             HuntState(d.uintAt(11)),
	}
	if d.err != nil {
		return HuntInfo{}, decodeErr("getTHuntInfo", d.err)
	}
	if err := info.checkGrid(); err != nil {
		return HuntInfo{}, decodeErr("getTHuntInfo", err)
	}
	return info, nil
}

func (r *Reader) ReservedSquares(ctx context.Context, huntID uint64) ([]uint64, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getReservedSquares", u256(huntID))
	if err != nil {
		return nil, err
	}
	squares := d.uintsAt(0)
	if d.err != nil {
		return nil, decodeErr("getReservedSquares", d.err)
	}
	return squares, nil
}

func (r *Reader) ReservedSquareCount(ctx context.Context, huntID uint64) (uint64, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getReservedSquareCount", u256(huntID))
	if err != nil {
		return 0, err
	}
	n := d.uintAt(0)
	if d.err != nil {
		return 0, decodeErr("getReservedSquareCount", d.err)
	}
	return n, nil
}

func (r *Reader) RevealedSquares(ctx context.Context, huntID uint64) ([]RevealedSquare, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getRevealedSquaresWithResults", u256(huntID))
	if err != nil {
		return nil, err
	}
	indices := d.uintsAt(0)
	flags, _ := d.at(1).([]bool)
	openers, _ := d.at(2).([]common.Address)
	if d.err != nil {
		return nil, decodeErr("getRevealedSquaresWithResults", d.err)
	}
	if len(flags) != len(indices) || len(openers) != len(indices) {
		return nil, decodeErr("getRevealedSquaresWithResults",
			fmt.Errorf("length mismatch %d/%d/%d", len(indices), len(flags), len(openers)))
	}
	out := make([]RevealedSquare, len(indices))
	for i, sq := range indices {
		out[i] = RevealedSquare{Square: sq, IsTreasure: flags[i], Opener: openers[i]}
	}
	return out, nil
}

func (r *Reader) UserHuntStatus(ctx context.Context, huntID uint64, user common.Address) (UserHuntStatus, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getUserTHuntStatus", u256(huntID), user)
	if err != nil {
		return UserHuntStatus{}, err
	}
	st := UserHuntStatus{
		KeyBalance:       d.uintAt(0),
		BonusKeyClaimed:  d.boolAt(1),
		TreasuresWon:     d.uintAt(2),
		TreasuresClaimed: d.uintAt(3),
	}
	if d.err != nil {
		return UserHuntStatus{}, decodeErr("getUserTHuntStatus", d.err)
	}
	return st, nil
}

func (r *Reader) UserTreasures(ctx context.Context, huntID uint64, user common.Address) (UserTreasures, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getUserTreasures", u256(huntID), user)
	if err != nil {
		return UserTreasures{}, err
	}
	t := UserTreasures{
		Won:       d.uintsAt(0),
		Claimable: d.uintsAt(1),
		Claimed:   d.uintsAt(2),
	}
	if d.err != nil {
		return UserTreasures{}, decodeErr("getUserTreasures", d.err)
	}
	return t, nil
}

func (r *Reader) KeyBalance(ctx context.Context, user common.Address) (uint64, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "getKeyBalance", user)
	if err != nil {
		return 0, err
	}
	n := d.uintAt(0)
	if d.err != nil {
		return 0, decodeErr("getKeyBalance", d.err)
	}
	return n, nil
}

func (r *Reader) CanClaimBonusKey(ctx context.Context, huntID uint64, user common.Address) (bool, error) {
	d, err := r.call(ctx, r.hunt, HuntABI, "canClaimBonusKey", u256(huntID), user)
	if err != nil {
		return false, err
	}
	ok := d.boolAt(0)
	if d.err != nil {
		return false, decodeErr("canClaimBonusKey", d.err)
	}
	return ok, nil
}

func (r *Reader) HuntWithdrawable(ctx context.Context) (*uint256.Int, error) {
	return r.withdrawable(ctx, r.hunt, HuntABI)
}

func (r *Reader) RaffleWithdrawable(ctx context.Context) (*uint256.Int, error) {
	return r.withdrawable(ctx, r.raffle, RaffleABI)
}

func (r *Reader) withdrawable(ctx context.Context, to common.Address, contract *abi.ABI) (*uint256.Int, error) {
	d, err := r.call(ctx, to, contract, "getWithdrawableAmount")
	if err != nil {
		return nil, err
	}
	amt := d.amountAt(0)
	if d.err != nil {
		return nil, decodeErr("getWithdrawableAmount", d.err)
	}
	return amt, nil
}

func (r *Reader) ActiveRaffleIDs(ctx context.Context) ([]uint64, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "getActiveRaffleIds")
	if err != nil {
		return nil, err
	}
	ids := d.uintsAt(0)
	if d.err != nil {
		return nil, decodeErr("getActiveRaffleIds", d.err)
	}
	return ids, nil
}

func (r *Reader) NextRaffleID(ctx context.Context) (uint64, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "nextRaffleId")
	if err != nil {
		return 0, err
	}
	n := d.uintAt(0)
	if d.err != nil {
		return 0, decodeErr("nextRaffleId", d.err)
	}
	return n, nil
}

func (r *Reader) RaffleInfo(ctx context.Context, raffleID uint64) (RaffleInfo, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "getRaffleInfo", u256(raffleID))
	if err != nil {
		return RaffleInfo{}, err
	}
	info := RaffleInfo{
		StartTime:         d.timeAt(0),
		EndTime:           d.timeAt(1),
		Threshold:         d.uintAt(2),
		Reward:            d.amountAt(3),
		ParticipantCount:  d.uintAt(4),
		Winner:            d.addressAt(5),
		VRFSequenceNumber: d.uintAt(6),
		ClaimDeadline:     d.timeAt(7),
		RefundsClaimed:    d.uintAt(8),
		State:             RaffleState(d.uintAt(9)),
	}
	if d.err != nil {
		return RaffleInfo{}, decodeErr("getRaffleInfo", d.err)
	}
	return info, nil
}

func (r *Reader) UserClaimStatus(ctx context.Context, raffleID uint64, user common.Address) (UserClaimStatus, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "getUserClaimStatus", u256(raffleID), user)
	if err != nil {
		return UserClaimStatus{}, err
	}
	st := UserClaimStatus{
		IsWinner:        d.boolAt(0),
		CanClaimReward:  d.boolAt(1),
		CanClaimRefund:  d.boolAt(2),
		ClaimableAmount: d.amountAt(3),
	}
	if d.err != nil {
		return UserClaimStatus{}, decodeErr("getUserClaimStatus", d.err)
	}
	return st, nil
}

func (r *Reader) IsParticipant(ctx context.Context, raffleID uint64, user common.Address) (bool, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "isParticipant", u256(raffleID), user)
	if err != nil {
		return false, err
	}
	ok := d.boolAt(0)
	if d.err != nil {
		return false, decodeErr("isParticipant", d.err)
	}
	return ok, nil
}

func (r *Reader) Participants(ctx context.Context, raffleID uint64) ([]common.Address, error) {
	d, err := r.call(ctx, r.raffle, RaffleABI, "getParticipants", u256(raffleID))
	if err != nil {
		return nil, err
	}
	addrs, ok := d.at(0).([]common.Address)
	if d.err == nil && !ok {
		d.err = fmt.Errorf("unexpected participants type %T", d.at(0))
	}
	if d.err != nil {
		return nil, decodeErr("getParticipants", d.err)
	}
	return addrs, nil
}
