package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/ibdash/internal/execution"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/logger"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string     `json:"error"`
	Code  order.Code `json:"code,omitempty"`
	Field string     `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondFailure maps domain errors onto HTTP statuses:
// validation 400, unknown order or contract 404, session expired 401,
// broker or gateway failure 502
func respondFailure(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Code: verr.Code, Field: verr.Field})
		return
	}

	var merr *order.ModificationError
	if errors.As(err, &merr) && merr.Code == order.CodeOrderNotFound {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "order not found", Code: merr.Code})
		return
	}
	if errors.Is(err, order.ErrOrderNotFound) || errors.Is(err, gateway.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	log.WithError(err).WithField("op", op).Error("Request failed")

	if errors.Is(err, gateway.ErrNotAuthenticated) {
		respondError(w, http.StatusUnauthorized, "gateway session is not authenticated")
		return
	}
	if merr != nil {
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "broker rejected the request", Code: merr.Code})
		return
	}
	if errors.Is(err, execution.ErrChannelUnavailable) {
		respondError(w, http.StatusBadGateway, "broker rejected the request")
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		respondError(w, http.StatusBadGateway, "gateway request failed")
		return
	}
	respondError(w, http.StatusBadGateway, "failed to "+op)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
