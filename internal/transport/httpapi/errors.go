package httpapi

import (
	"errors"
	"net/http"

	"github.com/DerekSmithEstrada/kingdom/internal/protocol"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
)

// writeSimError maps a simulation error onto the API error envelope.
// Business failures keep their detail; anything unrecognized is an
// internal error and only reaches the log.
func (s *Server) writeSimError(rw http.ResponseWriter, err error) {
	var (
		notFound     *village.NotFoundError
		insufficient *village.InsufficientResourcesError
		alloc        *village.AllocationError
		nothing      *village.NothingToDemolishError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(rw, http.StatusNotFound, protocol.ErrNotFound, err.Error())
	case errors.As(err, &insufficient):
		body := protocol.ErrorBody{
			Code:    protocol.ErrNoResource,
			Message: err.Error(),
			Missing: make(map[string]float64, len(insufficient.Missing)),
		}
		for r, amount := range insufficient.Missing {
			body.Missing[r.Key()] = amount
		}
		writeJSON(rw, http.StatusConflict, body)
	case errors.As(err, &alloc):
		writeError(rw, http.StatusConflict, protocol.ErrAllocation, err.Error())
	case errors.As(err, &nothing):
		writeError(rw, http.StatusConflict, protocol.ErrConflict, err.Error())
	default:
		// Parse failures from trade mode/resource lookups and the like.
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
	}
}
