package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/source"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// kindError carries the collection a failed list request was for.
type kindError struct {
	error
	kind source.Kind
}

func (e kindError) Unwrap() error { return e.error }

func withKind(err error, kind source.Kind) error {
	if err == nil {
		return nil
	}
	return kindError{err, kind}
}

var hints = map[source.Kind]string{
	source.KindAgents:    "Make sure the agent_states table exists",
	source.KindProposals: "Make sure the governance_log table exists",
	source.KindRules:     "Make sure the governance_log table exists",
	source.KindConflicts: "Make sure the transactions table exists",
	source.KindMetrics:   "Make sure the transactions table exists",
}

// statusOf maps an error code to an HTTP status.
func statusOf(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidVote, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidKind, errors.ErrCodeInvalidTable:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeProposalNotFound, errors.ErrCodeAgentNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeSourceUnavailable, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeClosed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusOf(code)
	resp := errorResponse{
		Error:     errors.UserMessage(err),
		Code:      string(code),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var ke kindError
	if stderrors.As(err, &ke) && status >= http.StatusInternalServerError {
		resp.Hint = hints[ke.kind]
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
