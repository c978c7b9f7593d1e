package hunt

import (
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/txflow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type HuntsResponse struct {
	Items []HuntItem `json:"items"`
}

type HuntItem struct {
	HuntID         uint64    `json:"hunt_id"`
	State          string    `json:"state"`
	Phase          string    `json:"phase"`
	PhaseText      string    `json:"phase_text"`
	GridWidth      uint64    `json:"grid_width"`
	GridHeight     uint64    `json:"grid_height"`
	TreasureCount  uint64    `json:"treasure_count"`
	TreasuresFound uint64    `json:"treasures_found"`
	RewardWei      string    `json:"reward_per_treasure_wei"`
	Reward         string    `json:"reward_per_treasure"`
	TotalRewards   string    `json:"total_rewards"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type BoardResponse struct {
	HuntItem
	Wallet         string          `json:"wallet"`
	ReservedCount  uint64          `json:"reserved_count"`
	KeyBalance     uint64          `json:"key_balance"`
	CanCommit      bool            `json:"can_commit"`
	CanClaimBonus  bool            `json:"can_claim_bonus"`
	ClaimDeadline  time.Time       `json:"claim_deadline"`
	Squares        []SquareView    `json:"squares"`
	OwnSquares     []uint64        `json:"own_squares"`
	PendingSquares []uint64        `json:"pending_squares"`
	Revealable     []uint64        `json:"revealable"`
	Claimable      []ClaimableView `json:"claimable"`
	Discoveries    []DiscoveryView `json:"discoveries"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

type SquareView struct {
	Index       uint64 `json:"index"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	IsTreasure  bool   `json:"is_treasure,omitempty"`
	Opener      string `json:"opener,omitempty"`
	Pending     bool   `json:"pending,omitempty"`
	Committable bool   `json:"committable"`
	Revealable  bool   `json:"revealable"`
}

type ClaimableView struct {
	Source        string    `json:"source"`
	ID            uint64    `json:"id"`
	Kind          string    `json:"kind"`
	AmountWei     string    `json:"amount_wei"`
	Amount        string    `json:"amount"`
	Deadline      time.Time `json:"deadline"`
	TreasureIndex uint64    `json:"treasure_index"`
}

type DiscoveryView struct {
	Square uint64 `json:"square"`
	Label  string `json:"label"`
	Finder string `json:"finder"`
	Reward string `json:"reward"`
}

type FlowResponse struct {
	Action    string    `json:"action"`
	State     string    `json:"state"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RevealAllResult struct {
	Revealed  []uint64 `json:"revealed"`
	Remaining []uint64 `json:"remaining"`
}

type ClaimAllResult struct {
	Claimed   []uint64 `json:"claimed"`
	Remaining []uint64 `json:"remaining"`
}

type revealProgress struct {
	Square uint64 `json:"square"`
	Done   int    `json:"done"`
	Total  int    `json:"total"`
}

func huntItem(id uint64, info chain.HuntInfo, phase reconcile.Phase) HuntItem {
	return HuntItem{
		HuntID:         id,
		State:          info.State.String(),
		Phase:          phase.Status,
		PhaseText:      phase.Text,
		GridWidth:      info.GridWidth,
		GridHeight:     info.GridHeight,
		TreasureCount:  info.TreasureCount,
		TreasuresFound: info.TreasuresFound,
		RewardWei:      weiString(info.RewardPerTreasure),
		Reward:         chain.FormatEther(info.RewardPerTreasure),
		TotalRewards:   chain.FormatEther(info.TotalRewards()),
		StartTime:      info.StartTime,
		EndTime:        info.EndTime,
	}
}

// BoardView renders a reconciled board for the API.
func BoardView(b *reconcile.Board) BoardResponse {
	out := BoardResponse{
		HuntItem:       huntItem(b.HuntID, b.Info, b.Phase),
		Wallet:         b.Wallet.Hex(),
		ReservedCount:  b.ReservedCount,
		KeyBalance:     b.KeyBalance,
		CanCommit:      b.CanCommit,
		CanClaimBonus:  b.CanClaimBonus,
		ClaimDeadline:  b.Info.ClaimDeadline,
		Squares:        make([]SquareView, 0, len(b.Squares)),
		OwnSquares:     nonNil(b.OwnSquares),
		PendingSquares: nonNil(b.PendingSquares),
		Revealable:     nonNil(b.Revealable),
		Claimable:      ClaimableViews(b.Claimable),
		Discoveries:    make([]DiscoveryView, 0, len(b.Discoveries)),
		FetchedAt:      b.FetchedAt,
	}
	for _, sq := range b.Squares {
		v := SquareView{
			Index:       sq.Index,
			Label:       sq.Label,
			Status:      sq.Status.String(),
			IsTreasure:  sq.IsTreasure,
			Pending:     sq.Pending,
			Committable: sq.Committable,
			Revealable:  sq.Revealable,
		}
		if sq.Status == reconcile.Revealed || sq.Status == reconcile.OwnReserved {
			v.Opener = sq.Opener.Hex()
		}
		out.Squares = append(out.Squares, v)
	}
	for _, d := range b.Discoveries {
		out.Discoveries = append(out.Discoveries, DiscoveryView{
			Square: d.Square,
			Label:  d.Label,
			Finder: d.Finder.Hex(),
			Reward: chain.FormatEther(d.Reward),
		})
	}
	return out
}

func ClaimableViews(items []reconcile.ClaimableItem) []ClaimableView {
	out := make([]ClaimableView, 0, len(items))
	for _, it := range items {
		out = append(out, ClaimableView{
			Source:        string(it.Source),
			ID:            it.ID,
			Kind:          it.Kind.String(),
			AmountWei:     weiString(it.Amount),
			Amount:        chain.FormatEther(it.Amount),
			Deadline:      it.Deadline,
			TreasureIndex: it.TreasureIndex,
		})
	}
	return out
}

// FlowView renders a runner status for the API.
func FlowView(st txflow.Status) FlowResponse {
	out := FlowResponse{
		Action:    st.Action,
		State:     string(st.State),
		Error:     st.Error,
		Kind:      st.Kind,
		UpdatedAt: st.UpdatedAt,
	}
	if st.TxHash != (common.Hash{}) {
		out.TxHash = st.TxHash.Hex()
	}
	return out
}

func weiString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func nonNil(v []uint64) []uint64 {
	if v == nil {
		return []uint64{}
	}
	return v
}
