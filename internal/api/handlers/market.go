package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/pkg/logger"
)

// MarketHandler serves contract lookup, watchlists and the scanner
type MarketHandler struct {
	client *gateway.Client
	logger *logger.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(client *gateway.Client, log *logger.Logger) *MarketHandler {
	return &MarketHandler{client: client, logger: log}
}

// Lookup searches contracts by symbol or name
// GET /api/lookup?symbol=AAPL
func (h *MarketHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{"contracts": []gateway.SearchResult{}})
		return
	}

	results, err := h.client.SearchContracts(r.Context(), symbol, r.URL.Query().Get("sec_type"))
	if err != nil {
		respondFailure(w, h.logger, "search contracts", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contracts": results})
}

// Contract returns a contract definition with its price history
// GET /api/contracts/{conid}/{period}?bar=1d
func (h *MarketHandler) Contract(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conid, err := strconv.ParseInt(vars["conid"], 10, 64)
	if err != nil || conid <= 0 {
		respondError(w, http.StatusBadRequest, "conid must be a positive integer")
		return
	}

	infos, err := h.client.ContractInfo(r.Context(), conid)
	if err != nil {
		respondFailure(w, h.logger, "load contract", err)
		return
	}
	history, err := h.client.History(r.Context(), conid, vars["period"], r.URL.Query().Get("bar"))
	if err != nil {
		respondFailure(w, h.logger, "load price history", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contract":      infos[0],
		"price_history": history,
	})
}

// Watchlists lists the user's watchlists
// GET /api/watchlists
func (h *MarketHandler) Watchlists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.client.Watchlists(r.Context())
	if err != nil {
		respondFailure(w, h.logger, "list watchlists", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"watchlists": lists})
}

// Watchlist returns one watchlist
// GET /api/watchlists/{id}
func (h *MarketHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.client.Watchlist(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, h.logger, "load watchlist", err)
		return
	}
	respondJSON(w, http.StatusOK, wl)
}

// CreateWatchlistRequest names the list and its symbols. Entries may hold
// several comma-separated symbols.
type CreateWatchlistRequest struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// CreateWatchlist creates a stock watchlist
// POST /api/watchlists
func (h *MarketHandler) CreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req CreateWatchlistRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var symbols []string
	for _, s := range req.Symbols {
		symbols = append(symbols, strings.Split(s, ",")...)
	}

	id, err := h.client.CreateWatchlist(r.Context(), req.Name, symbols)
	if err != nil {
		respondFailure(w, h.logger, "create watchlist", err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"id":   id,
		"name": req.Name,
	}).Info("Watchlist created")
	respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "name": req.Name})
}

// DeleteWatchlist removes a watchlist
// DELETE /api/watchlists/{id}
func (h *MarketHandler) DeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.client.DeleteWatchlist(r.Context(), id); err != nil {
		respondFailure(w, h.logger, "delete watchlist", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

// ScannerParams returns the scanner catalogue indexed for a form
// GET /api/scanner/params
func (h *MarketHandler) ScannerParams(w http.ResponseWriter, r *http.Request) {
	params, err := h.client.ScannerParams(r.Context())
	if err != nil {
		respondFailure(w, h.logger, "load scanner params", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"params":  params,
		"catalog": params.Catalog(),
	})
}

// RunScanner runs a market scan
// POST /api/scanner/run
func (h *MarketHandler) RunScanner(w http.ResponseWriter, r *http.Request) {
	var req gateway.ScanRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Instrument == "" || req.Type == "" {
		respondError(w, http.StatusBadRequest, "instrument and type are required")
		return
	}

	result, err := h.client.RunScanner(r.Context(), req)
	if err != nil {
		respondFailure(w, h.logger, "run scanner", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
