package reconcile

import (
	"time"

	"treasure-raffle/internal/chain"
)

var phaseNone = Phase{Status: "none", Text: "No Active Hunt"}

// HuntPhase is the status line shown above a board.
func HuntPhase(info chain.HuntInfo, now time.Time) Phase {
	switch info.State {
	case chain.HuntCreated:
		return Phase{Status: "pending", Text: "PENDING VRF"}
	case chain.HuntActive:
		switch {
		case now.Before(info.StartTime):
			return Phase{Status: "pending", Text: "STARTING SOON"}
		case now.Before(info.EndTime):
			return Phase{Status: "live", Text: "● LIVE"}
		default:
			return Phase{Status: "closing", Text: "AWAITING END"}
		}
	case chain.HuntEnded:
		return Phase{Status: "ended", Text: "ENDED - REVEAL PHASE"}
	case chain.HuntCompleted:
		return Phase{Status: "completed", Text: "COMPLETED"}
	case chain.HuntCancelled:
		return Phase{Status: "cancelled", Text: "CANCELLED"}
	default:
		return phaseNone
	}
}
