package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/ibdash/internal/account"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/riskctx"
	"github.com/wonny/ibdash/pkg/logger"
)

// AccountHandler serves account, portfolio and risk views
type AccountHandler struct {
	client   *gateway.Client
	provider *account.Provider
	context  *riskctx.Service
	logger   *logger.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(client *gateway.Client, provider *account.Provider, ctxSvc *riskctx.Service, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		client:   client,
		provider: provider,
		context:  ctxSvc,
		logger:   log,
	}
}

// Dashboard returns the first account, its summary and the risk snapshot
// GET /api/dashboard
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.client.Accounts(ctx)
	if err != nil {
		respondFailure(w, h.logger, "load accounts", err)
		return
	}
	if len(accounts) == 0 {
		respondFailure(w, h.logger, "load accounts", gateway.ErrNoAccount)
		return
	}

	summary, err := h.client.Summary(ctx)
	if err != nil {
		respondFailure(w, h.logger, "load summary", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account":  accounts[0],
		"summary":  summary,
		"snapshot": h.provider.Snapshot(ctx),
	})
}

// Portfolio returns every open position
// GET /api/portfolio
func (h *AccountHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := h.client.AllPositions(r.Context())
	if err != nil {
		respondFailure(w, h.logger, "load positions", err)
		return
	}
	if positions == nil {
		positions = []gateway.Position{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

// Exposure returns absolute exposure per asset
// GET /api/account/exposure
func (h *AccountHandler) Exposure(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exposure": h.provider.ExposureByAsset(r.Context()),
	})
}

// Drawdown returns the drawdown from the high-water mark in percent
// GET /api/account/drawdown
func (h *AccountHandler) Drawdown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"drawdown": h.provider.DrawdownPercent(r.Context()),
	})
}

// PairContext returns the risk context for one pair
// GET /api/context/{pair}
func (h *AccountHandler) PairContext(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]
	respondJSON(w, http.StatusOK, h.context.PairContext(r.Context(), pair))
}
