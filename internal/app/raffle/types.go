package raffle

import (
	"time"

	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/chain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Status is the headline shown for the displayed raffle.
type Status struct {
	Status  string `json:"status"`
	Text    string `json:"text"`
	CanJoin bool   `json:"can_join"`
}

type RaffleItem struct {
	RaffleID         uint64    `json:"raffle_id"`
	State            string    `json:"state"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Threshold        uint64    `json:"threshold"`
	ParticipantCount uint64    `json:"participant_count"`
	ThresholdPercent uint64    `json:"threshold_percent"`
	Successful       bool      `json:"successful"`
	RewardWei        string    `json:"reward_wei"`
	Reward           string    `json:"reward"`
	Winner           string    `json:"winner,omitempty"`
	ClaimDeadline    time.Time `json:"claim_deadline"`
	RefundsClaimed   uint64    `json:"refunds_claimed"`
}

type OverviewResponse struct {
	Current         *RaffleItem `json:"current"`
	Status          Status      `json:"status"`
	HasParticipated bool        `json:"has_participated"`
	EntryFeeWei     string      `json:"entry_fee_wei"`
	EntryFee        string      `json:"entry_fee"`
	Previous        *RaffleItem `json:"previous"`
}

type HistoryResponse struct {
	Items []RaffleItem `json:"items"`
	Stats HistoryStats `json:"stats"`
}

type HistoryStats struct {
	Raffles            int    `json:"raffles"`
	UniqueParticipants int    `json:"unique_participants"`
	AvgParticipants    uint64 `json:"avg_participants"`
	TotalEntries       uint64 `json:"total_entries"`
	TotalRewards       string `json:"total_rewards"`
}

type ClaimablesResponse struct {
	Items []hunt.ClaimableView `json:"items"`
}

type DrawEligibility struct {
	Status         string `json:"status"`
	Participations int    `json:"participations"`
	Required       int    `json:"required"`
	RangeFrom      uint64 `json:"range_from"`
	RangeTo        uint64 `json:"range_to"`
}

func raffleItem(id uint64, info chain.RaffleInfo) RaffleItem {
	item := RaffleItem{
		RaffleID:         id,
		State:            info.State.String(),
		StartTime:        info.StartTime,
		EndTime:          info.EndTime,
		Threshold:        info.Threshold,
		ParticipantCount: info.ParticipantCount,
		Successful:       info.ThresholdMet(),
		RewardWei:        weiString(info.Reward),
		Reward:           chain.FormatEther(info.Reward),
		ClaimDeadline:    info.ClaimDeadline,
		RefundsClaimed:   info.RefundsClaimed,
	}
	if info.Threshold > 0 {
		item.ThresholdPercent = info.ParticipantCount * 100 / info.Threshold
	}
	if info.Winner != (common.Address{}) {
		item.Winner = info.Winner.Hex()
	}
	return item
}

func weiString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
