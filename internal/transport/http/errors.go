package httptransport

import (
	"context"
	"errors"
	"net/http"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/app/raffle"
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/rs/zerolog/log"
)

type errorRoute struct {
	target error
	status int
}

// errorRoutes is checked in order; the first match decides the status and
// the error code is the sentinel's text.
var errorRoutes = []errorRoute{
	{hunt.ErrBoardUnavailable, http.StatusServiceUnavailable},
	{raffle.ErrRaffleUnavailable, http.StatusServiceUnavailable},
	{admin.ErrUnavailable, http.StatusServiceUnavailable},
	{chain.ErrRemoteReadUnavailable, http.StatusServiceUnavailable},

	{txflow.ErrBusy, http.StatusConflict},
	{admin.ErrNotAdmin, http.StatusForbidden},

	{wallet.ErrSigningDeclined, http.StatusUnprocessableEntity},
	{wallet.ErrSubmissionFailed, http.StatusBadGateway},
	{wallet.ErrTransactionReverted, http.StatusBadGateway},

	{hunt.ErrInvalidRequest, http.StatusBadRequest},
	{hunt.ErrInvalidKeyAmount, http.StatusBadRequest},
	{hunt.ErrSquareOutOfRange, http.StatusBadRequest},
	{raffle.ErrInvalidRequest, http.StatusBadRequest},
	{admin.ErrInvalidRequest, http.StatusBadRequest},
	{admin.ErrExceedsWithdrawable, http.StatusBadRequest},

	{raffle.ErrRaffleNotFound, http.StatusNotFound},

	{hunt.ErrHuntNotActive, http.StatusConflict},
	{hunt.ErrNoKeys, http.StatusConflict},
	{hunt.ErrSquareNotCommittable, http.StatusConflict},
	{hunt.ErrSquareNotRevealable, http.StatusConflict},
	{hunt.ErrNothingToReveal, http.StatusConflict},
	{hunt.ErrNothingToClaim, http.StatusConflict},
	{hunt.ErrBonusUnavailable, http.StatusConflict},
	{raffle.ErrRaffleNotJoinable, http.StatusConflict},
	{raffle.ErrAlreadyParticipated, http.StatusConflict},
	{raffle.ErrNothingToClaim, http.StatusConflict},
	{admin.ErrActionNotAvailable, http.StatusConflict},
}

func errorStatus(err error) (int, string, bool) {
	for _, rt := range errorRoutes {
		if errors.Is(err, rt.target) {
			return rt.status, rt.target.Error(), true
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, "cancelled", true
	}
	return http.StatusInternalServerError, "internal_error", false
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, known := errorStatus(err)
	if !known {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	metricErrorsByCode.Add(code, 1)
	WriteHTTPError(w, status, code)
}
