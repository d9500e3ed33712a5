package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/registry"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := errorResponse{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		body.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeServiceError maps app-layer errors onto the wire. Anything that is not
// a typed app error is a storage failure and must not leak its message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		regErr *registry.Error
		subErr *subscriptions.Error
		ledErr *ledger.Error
	)
	switch {
	case errors.As(err, &regErr):
		writeError(w, r, regErr.Status, regErr.Code, regErr.Message, regErr.Details)
	case errors.As(err, &subErr):
		writeError(w, r, subErr.Status, subErr.Code, subErr.Message, subErr.Details)
	case errors.As(err, &ledErr):
		writeError(w, r, ledErr.Status, ledErr.Code, ledErr.Message, ledErr.Details)
	default:
		writeError(w, r, http.StatusInternalServerError, "STORE_ERROR", "storage failure", nil)
	}
}
