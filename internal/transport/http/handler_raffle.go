package httptransport

import (
	"encoding/json"
	"net/http"

	"treasure-raffle/internal/app/raffle"
)

const historyMaxLimit = 100

type RaffleHandlers struct {
	raffles *raffle.Service
}

func NewRaffleHandlers(raffles *raffle.Service) *RaffleHandlers {
	return &RaffleHandlers{raffles: raffles}
}

func (h *RaffleHandlers) Overview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.raffles.Overview(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *RaffleHandlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.raffles.History(r.Context(), ParseLimit(r, historyMaxLimit))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *RaffleHandlers) Claimables() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.raffles.ClaimablesView(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *RaffleHandlers) DrawEligibility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.raffles.DrawEligibility(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *RaffleHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raffleID, ok := uintParam(r, "raffle_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_raffle_id")
			return
		}
		if err := h.raffles.Join(r.Context(), raffleID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": h.raffles.Flow()})
	}
}

func (h *RaffleHandlers) Claim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raffleID, ok := uintParam(r, "raffle_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_raffle_id")
			return
		}
		kind, err := h.raffles.Claim(r.Context(), raffleID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "kind": kind.String(), "flow": h.raffles.Flow()})
	}
}
