// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/inkcheck/internal/app"
	"github.com/okian/inkcheck/internal/domain/trace"
)

// SubmitDependencies defines the interface for submission processing.
type SubmitDependencies interface {
	Submit(ctx context.Context, raw []byte) (Report, error)
	SubmitBatch(ctx context.Context, raws [][]byte) ([]service.Outcome, error)
}

// SubmitHandler handles submission requests.
type SubmitHandler struct {
	deps         SubmitDependencies
	maxBodyBytes int64
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, maxBodyBytes int64) *SubmitHandler {
	if maxBodyBytes < 1 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &SubmitHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleSubmit handles POST /submit requests.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := h.readBody(w, r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	report, err := h.deps.Submit(r.Context(), raw)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// batchItem is one element of the POST /submit/batch response. Exactly one
// of Report and Error is set.
type batchItem struct {
	Index  int            `json:"index"`
	Report *Report        `json:"report,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

// HandleSubmitBatch handles POST /submit/batch requests. The body is a JSON
// array of submissions; the answer holds one item per submission in order.
func (h *SubmitHandler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := h.readBody(w, r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &items); err != nil {
		writeFailure(w, Wrap(op, &trace.Error{
			Kind:   trace.ErrMalformedPayload,
			Reason: "batch body must be a JSON array of submissions",
		}))
		return
	}
	raws := make([][]byte, len(items))
	for i, item := range items {
		raws[i] = item
	}

	outcomes, err := h.deps.SubmitBatch(r.Context(), raws)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	resp := make([]batchItem, len(outcomes))
	for i := range outcomes {
		resp[i].Index = i
		if outcomes[i].Err != nil {
			status, code := classify(outcomes[i].Err)
			p := problem(status, code, outcomes[i].Err)
			resp[i].Error = &p
			continue
		}
		resp[i].Report = &outcomes[i].Report
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SubmitHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.Join(ErrBadRequest, err)
	}
	return raw, nil
}
