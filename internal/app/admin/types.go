package admin

import "time"

type CreateRaffleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Threshold uint64    `json:"threshold"`
	// Reward is a decimal MON amount.
	Reward string `json:"reward"`
}

type CreateHuntRequest struct {
	GridWidth         uint64    `json:"grid_width"`
	GridHeight        uint64    `json:"grid_height"`
	TreasureCount     uint64    `json:"treasure_count"`
	RewardPerTreasure string    `json:"reward_per_treasure"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	RaffleIDStart     uint64    `json:"raffle_id_start"`
	RaffleIDEnd       uint64    `json:"raffle_id_end"`
}

type TreasuryTransferRequest struct {
	Treasury string `json:"treasury"`
	Amount   string `json:"amount"`
}

type WithdrawableResponse struct {
	RaffleWei string `json:"raffle_wei"`
	Raffle    string `json:"raffle"`
	HuntWei   string `json:"hunt_wei"`
	Hunt      string `json:"hunt"`
}

type PendingResponse struct {
	Raffles []PendingRaffle `json:"raffles"`
	Hunts   []PendingHunt   `json:"hunts"`
}

type PendingRaffle struct {
	RaffleID         uint64    `json:"raffle_id"`
	State            string    `json:"state"`
	ParticipantCount uint64    `json:"participant_count"`
	EndTime          time.Time `json:"end_time"`
	ClaimDeadline    time.Time `json:"claim_deadline"`
	CanFinalize      bool      `json:"can_finalize"`
	CanCancel        bool      `json:"can_cancel"`
	CanCancelStuck   bool      `json:"can_cancel_stuck"`
	CanComplete      bool      `json:"can_complete"`
}

type PendingHunt struct {
	HuntID        uint64    `json:"hunt_id"`
	State         string    `json:"state"`
	EndTime       time.Time `json:"end_time"`
	ClaimDeadline time.Time `json:"claim_deadline"`
	CanEnd        bool      `json:"can_end"`
	CanCancel     bool      `json:"can_cancel"`
	CanComplete   bool      `json:"can_complete"`
}
