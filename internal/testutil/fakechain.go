package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/secret"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	HuntContract   = common.HexToAddress("0x91AC7FEfB3759C36355F92eF3F3014f9aF648Bb7")
	RaffleContract = common.HexToAddress("0x26A56f3245161CE7938200F1366A1cf9549c7e20")
)

// FakeHunt is the contract-side state of one treasure hunt.
type FakeHunt struct {
	Info      chain.HuntInfo
	Reserved  []uint64
	Openers   map[uint64]common.Address
	Commits   map[uint64]common.Hash
	Revealed  []chain.RevealedSquare
	Treasures map[uint64]bool
	Won       map[common.Address][]uint64
	Claimed   map[common.Address][]uint64
	Bonus     map[common.Address]bool
}

type FakeRaffle struct {
	Info         chain.RaffleInfo
	Participants []common.Address
	Claims       map[common.Address]chain.UserClaimStatus
}

// FakeChain answers view calls for both contracts and applies the writes a
// FakeWallet sends. It implements ethereum.ContractCaller.
type FakeChain struct {
	mu sync.Mutex

	Hunts        map[uint64]*FakeHunt
	ActiveHunts  []uint64
	Raffles      map[uint64]*FakeRaffle
	ActiveRaffle []uint64
	NextRaffle   uint64
	Keys         map[common.Address]uint64
	Withdrawable *big.Int

	// FailMethods makes the named view calls error.
	FailMethods map[string]error
	Writes      []string
	viewCalls   map[string]int
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		Hunts:        make(map[uint64]*FakeHunt),
		Raffles:      make(map[uint64]*FakeRaffle),
		Keys:         make(map[common.Address]uint64),
		FailMethods:  make(map[string]error),
		Withdrawable: new(big.Int),
		viewCalls:    make(map[string]int),
	}
}

// AddHunt registers a hunt with an empty board and marks it active.
func (f *FakeChain) AddHunt(id uint64, info chain.HuntInfo, treasures ...uint64) *FakeHunt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info.RewardPerTreasure == nil {
		info.RewardPerTreasure = uint256.NewInt(1_000)
	}
	h := &FakeHunt{
		Info:      info,
		Openers:   make(map[uint64]common.Address),
		Commits:   make(map[uint64]common.Hash),
		Treasures: make(map[uint64]bool),
		Won:       make(map[common.Address][]uint64),
		Claimed:   make(map[common.Address][]uint64),
		Bonus:     make(map[common.Address]bool),
	}
	for _, t := range treasures {
		h.Treasures[t] = true
	}
	f.Hunts[id] = h
	f.ActiveHunts = append(f.ActiveHunts, id)
	return h
}

func (f *FakeChain) AddRaffle(id uint64, info chain.RaffleInfo) *FakeRaffle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info.Reward == nil {
		info.Reward = uint256.NewInt(0)
	}
	r := &FakeRaffle{Info: info, Claims: make(map[common.Address]chain.UserClaimStatus)}
	f.Raffles[id] = r
	if id >= f.NextRaffle {
		f.NextRaffle = id + 1
	}
	if info.State == chain.RaffleCreated || info.State == chain.RaffleActive {
		f.ActiveRaffle = append(f.ActiveRaffle, id)
	}
	return r
}

// Reserve marks square as taken by opener without a commit hash.
func (f *FakeChain) Reserve(huntID, square uint64, opener common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.Hunts[huntID]
	h.Reserved = append(h.Reserved, square)
	h.Openers[square] = opener
}

func (f *FakeChain) SetHuntState(huntID uint64, state chain.HuntState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hunts[huntID].Info.State = state
}

func (f *FakeChain) Update(fn func(f *FakeChain)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *FakeChain) ViewCalls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewCalls[method]
}

func (f *FakeChain) WriteLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Writes...)
}

func (f *FakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil {
		return nil, errors.New("missing to")
	}
	contract := contractABI(*call.To)
	if contract == nil {
		return nil, nil
	}
	method, args, err := decodeCall(contract, call.Data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewCalls[method.Name]++
	if err := f.FailMethods[method.Name]; err != nil {
		return nil, err
	}
	out, err := f.view(*call.To, method.Name, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return method.Outputs.Pack(out...)
}

func (f *FakeChain) view(to common.Address, name string, args []any) ([]any, error) {
	if to == RaffleContract {
		return f.raffleView(name, args)
	}
	switch name {
	case "getActiveTHuntIds":
		return []any{bigs(f.ActiveHunts)}, nil
	case "getKeyBalance":
		return []any{u(f.Keys[args[0].(common.Address)])}, nil
	case "getWithdrawableAmount":
		return []any{new(big.Int).Set(f.Withdrawable)}, nil
	}
	h, ok := f.Hunts[argUint(args, 0)]
	if !ok {
		return nil, nil
	}
	switch name {
	case "getTHuntInfo":
		i := h.Info
		return []any{
			u(i.GridWidth), u(i.GridHeight), i.RewardPerTreasure.ToBig(), u(i.TreasureCount),
			unix(i.StartTime.Unix()), unix(i.EndTime.Unix()), u(i.RaffleIDStart), u(i.RaffleIDEnd),
			u(i.TreasuresFound), u(i.TreasuresClaimed), unix(i.ClaimDeadline.Unix()), uint8(i.State),
		}, nil
	case "getReservedSquares":
		return []any{bigs(h.Reserved)}, nil
	case "getReservedSquareCount":
		return []any{u(uint64(len(h.Reserved)))}, nil
	case "getRevealedSquaresWithResults":
		idx := make([]*big.Int, 0, len(h.Revealed))
		flags := make([]bool, 0, len(h.Revealed))
		openers := make([]common.Address, 0, len(h.Revealed))
		for _, r := range h.Revealed {
			idx = append(idx, u(r.Square))
			flags = append(flags, r.IsTreasure)
			openers = append(openers, r.Opener)
		}
		return []any{idx, flags, openers}, nil
	case "getUserTHuntStatus":
		user := args[1].(common.Address)
		return []any{u(f.Keys[user]), h.Bonus[user], u(uint64(len(h.Won[user]))), u(uint64(len(h.Claimed[user])))}, nil
	case "getUserTreasures":
		user := args[1].(common.Address)
		return []any{bigs(h.Won[user]), bigs(h.claimable(user)), bigs(h.Claimed[user])}, nil
	case "canClaimBonusKey":
		user := args[1].(common.Address)
		return []any{!h.Bonus[user] && h.Info.State == chain.HuntActive}, nil
	}
	return nil, fmt.Errorf("fake hunt: unsupported view %s", name)
}

func (f *FakeChain) raffleView(name string, args []any) ([]any, error) {
	switch name {
	case "getActiveRaffleIds":
		return []any{bigs(f.ActiveRaffle)}, nil
	case "nextRaffleId":
		return []any{u(f.NextRaffle)}, nil
	case "getWithdrawableAmount":
		return []any{new(big.Int).Set(f.Withdrawable)}, nil
	}
	r, ok := f.Raffles[argUint(args, 0)]
	if !ok {
		if name == "isParticipant" {
			return []any{false}, nil
		}
		return nil, nil
	}
	switch name {
	case "getRaffleInfo":
		i := r.Info
		return []any{
			unix(i.StartTime.Unix()), unix(i.EndTime.Unix()), u(i.Threshold), i.Reward.ToBig(),
			u(i.ParticipantCount), i.Winner, i.VRFSequenceNumber, unix(i.ClaimDeadline.Unix()),
			u(i.RefundsClaimed), uint8(i.State),
		}, nil
	case "getUserClaimStatus":
		st := r.Claims[args[1].(common.Address)]
		amt := new(big.Int)
		if st.ClaimableAmount != nil {
			amt = st.ClaimableAmount.ToBig()
		}
		return []any{st.IsWinner, st.CanClaimReward, st.CanClaimRefund, amt}, nil
	case "isParticipant":
		return []any{r.isParticipant(args[1].(common.Address))}, nil
	case "getParticipants":
		return []any{append([]common.Address{}, r.Participants...)}, nil
	}
	return nil, fmt.Errorf("fake raffle: unsupported view %s", name)
}

// Apply executes a write from sender. A returned error is a revert.
func (f *FakeChain) Apply(from common.Address, call wallet.Call) error {
	contract := contractABI(call.To)
	if contract == nil {
		return errors.New("unknown contract")
	}
	method, args, err := decodeCall(contract, call.Data)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, method.Name)

	switch method.Name {
	case "buyKeys":
		mon := new(big.Int).Quo(valueOf(call), chain.WholeMON(1)).Uint64()
		f.Keys[from] += mon * chain.KeysPerMON
		return nil
	case "joinRaffle":
		r, ok := f.Raffles[argUint(args, 0)]
		if !ok || r.isParticipant(from) {
			return errors.New("cannot join")
		}
		r.Participants = append(r.Participants, from)
		r.Info.ParticipantCount++
		return nil
	case "claimReward", "claimRefund":
		r, ok := f.Raffles[argUint(args, 0)]
		if !ok {
			return errors.New("no raffle")
		}
		st := r.Claims[from]
		if (method.Name == "claimReward" && !st.CanClaimReward) || (method.Name == "claimRefund" && !st.CanClaimRefund) {
			return errors.New("nothing to claim")
		}
		delete(r.Claims, from)
		return nil
	case "createRaffle", "finalizeRaffle", "markRaffleCompleted", "cancelEndedRaffle", "cancelStuckRaffle",
		"treasuryTransfer", "createTreasureHunt", "endTreasureHunt", "markCompleted", "forceCancel":
		return nil
	}

	h, ok := f.Hunts[argUint(args, 0)]
	if !ok {
		return errors.New("no hunt")
	}
	switch method.Name {
	case "commitSquare":
		square := argUint(args, 1)
		if h.Info.State != chain.HuntActive || f.Keys[from] == 0 {
			return errors.New("cannot commit")
		}
		if _, taken := h.Openers[square]; taken {
			return errors.New("square reserved")
		}
		f.Keys[from]--
		h.Reserved = append(h.Reserved, square)
		h.Openers[square] = from
		h.Commits[square] = common.Hash(args[2].([32]byte))
		return nil
	case "revealSquare":
		square := argUint(args, 1)
		secretHash := common.Hash(args[2].([32]byte))
		if h.Info.State != chain.HuntEnded || h.Openers[square] != from {
			return errors.New("cannot reveal")
		}
		if secret.CommitHash(square, secretHash) != h.Commits[square] {
			return errors.New("bad secret")
		}
		treasure := h.Treasures[square]
		h.Revealed = append(h.Revealed, chain.RevealedSquare{Square: square, IsTreasure: treasure, Opener: from})
		if treasure {
			h.Won[from] = append(h.Won[from], square)
			h.Info.TreasuresFound++
		}
		return nil
	case "claimTreasure":
		idx := argUint(args, 1)
		for _, c := range h.claimable(from) {
			if c == idx {
				h.Claimed[from] = append(h.Claimed[from], idx)
				h.Info.TreasuresClaimed++
				return nil
			}
		}
		return errors.New("not claimable")
	case "claimBonusKey":
		if h.Bonus[from] {
			return errors.New("bonus claimed")
		}
		h.Bonus[from] = true
		f.Keys[from]++
		return nil
	}
	return fmt.Errorf("fake: unsupported write %s", method.Name)
}

func (h *FakeHunt) claimable(user common.Address) []uint64 {
	claimed := make(map[uint64]bool)
	for _, c := range h.Claimed[user] {
		claimed[c] = true
	}
	out := make([]uint64, 0)
	for _, w := range h.Won[user] {
		if !claimed[w] {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *FakeRaffle) isParticipant(a common.Address) bool {
	for _, p := range r.Participants {
		if p == a {
			return true
		}
	}
	return false
}

func contractABI(to common.Address) *abi.ABI {
	switch to {
	case HuntContract:
		return chain.HuntABI
	case RaffleContract:
		return chain.RaffleABI
	default:
		return nil
	}
}

func decodeCall(contract *abi.ABI, data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("short calldata")
	}
	method, err := contract.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func argUint(args []any, i int) uint64 {
	if i >= len(args) {
		return 0
	}
	b, ok := args[i].(*big.Int)
	if !ok {
		return 0
	}
	return b.Uint64()
}

func valueOf(call wallet.Call) *big.Int {
	if call.Value == nil {
		return new(big.Int)
	}
	return call.Value
}

func u(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

func unix(v int64) *big.Int {
	if v < 0 {
		return new(big.Int)
	}
	return big.NewInt(v)
}

func bigs(vs []uint64) []*big.Int {
	out := make([]*big.Int, 0, len(vs))
	for _, v := range vs {
		out = append(out, u(v))
	}
	return out
}
