package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/audit"
)

// handleEvent accepts one change event envelope and reconciles it.
//
// Only a malformed envelope is rejected (400) and in that case nothing
// downstream has been touched. Every envelope that parses is answered with
// 200 and the result, whatever the reconciliation status, because the
// outcome is already on the tracking board.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	ev, err := asset.ParseEnvelope(body, s.clock())
	if err != nil {
		var verr *asset.ValidationError
		if errors.As(err, &verr) {
			if s.metrics != nil {
				s.metrics.IncInvalidEvents()
			}
			s.logger.Warn("change event rejected",
				"problems", verr.Problems,
				"request_id", requestID(r.Context()),
			)
			writeValidationError(w, verr.Problems)
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	// A caller hanging up must not abort a half-applied reconciliation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.reconcileTimeout())
	defer cancel()

	res := s.events.Handle(ctx, ev)
	writeJSON(w, http.StatusOK, res)
}

// handleListReconciliations returns recorded runs, newest first.
//
// Query parameters:
//   - serial: filter by new serial
//   - status: filter by pass, partial or failed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListReconciliations(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "reconciliation log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Serial: q.Get("serial"),
		Status: q.Get("status"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.log.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list reconciliations", "error", err)
		writeInternalError(w, "failed to list reconciliations")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
