package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
)

type AdminHandlers struct {
	admin *admin.Service
	ping  func(ctx context.Context) error
}

// NewAdminHandlers serves the owner routes. ping checks the commit backend
// for /healthz and may be nil.
func NewAdminHandlers(svc *admin.Service, ping func(ctx context.Context) error) *AdminHandlers {
	return &AdminHandlers{admin: svc, ping: ping}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.ping == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "store": "file"})
			return
		}
		if err := h.ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "store": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "store": "up"})
	}
}

func (h *AdminHandlers) Pending() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.admin.Pending(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *AdminHandlers) Withdrawable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.admin.Withdrawable(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *AdminHandlers) CreateRaffle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body admin.CreateRaffleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		h.respond(w, r, h.admin.CreateRaffle(r.Context(), body))
	}
}

func (h *AdminHandlers) CreateHunt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body admin.CreateHuntRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		h.respond(w, r, h.admin.CreateHunt(r.Context(), body))
	}
}

func (h *AdminHandlers) TreasuryTransfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body admin.TreasuryTransferRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		h.respond(w, r, h.admin.TreasuryTransfer(r.Context(), body))
	}
}

// RaffleAction adapts one of the per-raffle owner operations.
func (h *AdminHandlers) RaffleAction(do func(ctx context.Context, raffleID uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raffleID, ok := uintParam(r, "raffle_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_raffle_id")
			return
		}
		h.respond(w, r, do(r.Context(), raffleID))
	}
}

func (h *AdminHandlers) HuntAction(do func(ctx context.Context, huntID uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		h.respond(w, r, do(r.Context(), huntID))
	}
}

func (h *AdminHandlers) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": hunt.FlowView(h.admin.Flow())})
}
