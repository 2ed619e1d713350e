package api

import (
	"errors"
	"net/http"

	"blocklucky/models"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{models.ErrPayoutFailed, http.StatusBadGateway},
	{models.ErrUnauthorized, http.StatusForbidden},
	{models.ErrInvalidSignature, http.StatusUnauthorized},
	{models.ErrInvalidNonce, http.StatusConflict},
	{models.ErrInactiveRound, http.StatusConflict},
	{models.ErrInvalidAmount, http.StatusBadRequest},
	{models.ErrInvalidQuantity, http.StatusBadRequest},
	{models.ErrInvalidConfiguration, http.StatusBadRequest},
	{models.ErrInsufficientFunds, http.StatusPaymentRequired},
	{models.ErrAccountNotFound, http.StatusPaymentRequired},
	{models.ErrLotteryNotFound, http.StatusNotFound},
}

// statusForError maps a service error to its HTTP status and revert reason.
// ErrPayoutFailed comes first since it wraps the underlying transfer error.
// Client errors carry the full wrapped message, server errors only the
// sentinel text.
func statusForError(err error) (int, string) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.err) {
			continue
		}
		if e.status < http.StatusInternalServerError {
			return e.status, err.Error()
		}
		return e.status, e.err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
