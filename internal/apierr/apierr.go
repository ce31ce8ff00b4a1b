// Package apierr maps domain errors to HTTP statuses and stable error codes.
package apierr

import (
	"errors"
	"net/http"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
)

const (
	CodeInternal     = "internal"
	InternalMessage  = "internal server error"
	CodeUnauthorized = "unauthorized"
)

type rule struct {
	target error
	status int
	code   string
}

var rules = []rule{
	{engine.ErrValidation, http.StatusBadRequest, "validation_error"},
	{engine.ErrUnrecognizedEvent, http.StatusBadRequest, "unrecognized_event"},
	{engine.ErrNotFound, http.StatusNotFound, "not_found"},
	{engine.ErrInvalidTurn, http.StatusConflict, "invalid_turn"},
	{engine.ErrMapAlreadyResolved, http.StatusConflict, "map_already_resolved"},
	{engine.ErrPoolMismatch, http.StatusConflict, "pool_mismatch"},
	{engine.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// Classify returns the status and code for err. ok is false for errors that
// are not part of the API contract; those map to 500 and CodeInternal.
func Classify(err error) (status int, code string, ok bool) {
	for _, r := range rules {
		if errors.Is(err, r.target) {
			return r.status, r.code, true
		}
	}
	return http.StatusInternalServerError, CodeInternal, false
}
