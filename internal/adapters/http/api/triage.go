// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// TriageDependencies defines the interface for triage listings.
type TriageDependencies interface {
	Triage(ctx context.Context, n int) ([]TriageEntry, error)
}

// TriageHandler handles triage requests.
type TriageHandler struct {
	deps     TriageDependencies
	maxLimit int
}

// NewTriageHandler creates a new triage handler.
func NewTriageHandler(deps TriageDependencies, maxLimit int) *TriageHandler {
	if maxLimit < 1 {
		maxLimit = defaultMaxTriageLimit
	}
	return &TriageHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetTriage handles GET /triage?limit=N requests. N defaults to 10.
func (h *TriageHandler) HandleGetTriage(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_triage"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := min(10, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", limitStr)))
			return
		}
	}
	if n > h.maxLimit {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d exceeds the maximum of %d", n, h.maxLimit)))
		return
	}
	entries, err := h.deps.Triage(r.Context(), n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
