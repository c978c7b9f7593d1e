package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/app/raffle"

	"github.com/go-chi/chi/v5"
)

type HuntHandlers struct {
	hunts *hunt.Service
}

func NewHuntHandlers(hunts *hunt.Service) *HuntHandlers {
	return &HuntHandlers{hunts: hunts}
}

func uintParam(r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return v, err == nil
}

func WalletHandler(hunts *hunt.Service, admins *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"address": hunts.Wallet().Hex(),
			"admin":   admins.Authorized(),
		})
	}
}

// FlowsHandler reports the last status of each transaction runner.
func FlowsHandler(hunts *hunt.Service, raffles *raffle.Service, admins *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]hunt.FlowResponse{
			"hunt":   hunts.Flow(),
			"raffle": raffles.Flow(),
			"admin":  hunt.FlowView(admins.Flow()),
		})
	}
}

func (h *HuntHandlers) Hunts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.hunts.ActiveHunts(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *HuntHandlers) Board() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		b, err := h.hunts.Board(r.Context(), huntID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(hunt.BoardView(b))
	}
}

func (h *HuntHandlers) Commit() http.HandlerFunc {
	return h.squareAction(h.hunts.Commit)
}

func (h *HuntHandlers) Reveal() http.HandlerFunc {
	return h.squareAction(h.hunts.Reveal)
}

func (h *HuntHandlers) squareAction(do func(ctx context.Context, huntID, square uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		square, ok := uintParam(r, "square")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_square")
			return
		}
		if err := do(r.Context(), huntID, square); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": h.hunts.Flow()})
	}
}

func (h *HuntHandlers) RevealAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		res, err := h.hunts.RevealAll(r.Context(), huntID)
		if err != nil {
			writeBatchError(w, r, err, len(res.Revealed), res)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

func (h *HuntHandlers) ClaimAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		res, err := h.hunts.ClaimAll(r.Context(), huntID)
		if err != nil {
			writeBatchError(w, r, err, len(res.Claimed), res)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// writeBatchError keeps the partial progress of a bulk run in the error
// body once at least one step went through.
func writeBatchError(w http.ResponseWriter, r *http.Request, err error, done int, res any) {
	if done == 0 {
		writeServiceError(w, r, err)
		return
	}
	status, code, _ := errorStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code, "result": res})
}

func (h *HuntHandlers) ClaimTreasure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		index, ok := uintParam(r, "index")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_treasure_index")
			return
		}
		if err := h.hunts.ClaimTreasure(r.Context(), huntID, index); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": h.hunts.Flow()})
	}
}

func (h *HuntHandlers) BonusKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		if err := h.hunts.ClaimBonusKey(r.Context(), huntID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": h.hunts.Flow()})
	}
}

func (h *HuntHandlers) BuyKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			MON uint64 `json:"mon"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.hunts.BuyKeys(r.Context(), body.MON); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "flow": h.hunts.Flow()})
	}
}
