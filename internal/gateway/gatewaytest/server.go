// Package gatewaytest provides an in-memory Client Portal gateway for tests
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/httputil"
	"github.com/wonny/ibdash/pkg/logger"
)

// Account is the account id the fake gateway reports
const Account = "DU1234567"

// Server is a fake gateway. Exported fields may be changed between requests
// while holding Lock/Unlock.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	NetLiquidation float64
	Positions      []gateway.Position
	Contracts      map[string][]gateway.SearchResult
	Orders         map[string]*gateway.LiveOrder
	Watchlists     map[string]*gateway.Watchlist
	Scanner        gateway.ScannerParams

	// Requests records every place-order request body in arrival order
	Requests [][]gateway.OrderRequest
	// Modified records modify payloads by order id
	Modified map[string]gateway.OrderRequest

	// Prompts is the number of confirmation prompts to send before accepting an order
	Prompts int
	// FailStatus makes every endpoint except /tickle answer with this status when non-zero
	FailStatus int
	// InitialStatus is the status given to newly placed orders
	InitialStatus string

	Tickles int

	nextID  int
	pending [][]gateway.OrderRequest
}

// New starts a fake gateway
func New() *Server {
	s := &Server{
		NetLiquidation: 100000,
		Contracts: map[string][]gateway.SearchResult{
			"EUR.USD": {{ConID: 12087792, Symbol: "EUR.USD", CompanyHeader: "EUR.USD - IDEALPRO",
				Sections: []gateway.ContractSection{{SecType: "CASH", Exchange: "IDEALPRO"}}}},
			"AAPL": {{ConID: 265598, Symbol: "AAPL", CompanyName: "APPLE INC",
				Sections: []gateway.ContractSection{{SecType: "STK", Exchange: "NASDAQ"}}}},
		},
		Orders:        map[string]*gateway.LiveOrder{},
		Watchlists:    map[string]*gateway.Watchlist{},
		Modified:      map[string]gateway.OrderRequest{},
		InitialStatus: "PreSubmitted",
		nextID:        1000,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// Lock guards the exported fields
func (s *Server) Lock() { s.mu.Lock() }

// Unlock releases Lock
func (s *Server) Unlock() { s.mu.Unlock() }

// BaseURL returns the gateway API root
func (s *Server) BaseURL() string {
	return s.URL + "/v1/api"
}

// Config returns a gateway config pointing at the fake
func (s *Server) Config() config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:   s.BaseURL(),
		AccountID: Account,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
	}
}

// Client returns a gateway client wired to the fake
func (s *Server) Client() *gateway.Client {
	cfg := &config.Config{Gateway: s.Config()}
	log := logger.Nop()
	httpClient := httputil.New(cfg, log).WithRetry(1, time.Millisecond)
	return gateway.NewClient(cfg.Gateway, httpClient, nil, log)
}

// SetStatus changes the status of a placed order
func (s *Server) SetStatus(orderID, status string, filled float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[orderID]; ok {
		o.Status = status
		o.FilledQuantity = gateway.Number(filled)
		o.RemainingQuantity = o.TotalSize - gateway.Number(filled)
	}
}

// OrderByRef returns the placed order with cOID ref
func (s *Server) OrderByRef(ref string) (*gateway.LiveOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.Orders {
		if o.OrderRef == ref {
			cp := *o
			return &cp, true
		}
	}
	return nil, false
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/v1/api").Subrouter()
	api.Use(s.failMiddleware)

	api.HandleFunc("/tickle", s.handleTickle).Methods(http.MethodPost)
	api.HandleFunc("/iserver/auth/status", s.handleAuth).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/accounts", s.handleAccounts).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/{acct}/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/{acct}/positions/{page}", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/iserver/secdef/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/trsrv/secdef", s.handleSecdef).Methods(http.MethodPost)
	api.HandleFunc("/iserver/marketdata/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/iserver/account/orders", s.handleLiveOrders).Methods(http.MethodGet)
	api.HandleFunc("/iserver/account/{acct}/orders", s.handlePlace).Methods(http.MethodPost)
	api.HandleFunc("/iserver/reply/{id}", s.handleReply).Methods(http.MethodPost)
	api.HandleFunc("/iserver/account/{acct}/order/{id}", s.handleModify).Methods(http.MethodPost)
	api.HandleFunc("/iserver/account/{acct}/order/{id}", s.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/iserver/account/order/status/{id}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/iserver/watchlists", s.handleWatchlists).Methods(http.MethodGet)
	api.HandleFunc("/iserver/watchlist", s.handleWatchlist).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	api.HandleFunc("/iserver/scanner/params", s.handleScannerParams).Methods(http.MethodGet)
	api.HandleFunc("/iserver/scanner/run", s.handleScannerRun).Methods(http.MethodPost)
	return r
}

func (s *Server) failMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.FailStatus
		s.mu.Unlock()
		if status != 0 && !strings.HasSuffix(r.URL.Path, "/tickle") {
			writeJSON(w, status, map[string]string{"error": "gateway unavailable"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleTickle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.Tickles++
	s.mu.Unlock()
	resp := gateway.TickleResponse{Session: "fake-session"}
	resp.IServer.AuthStatus = gateway.AuthStatus{Authenticated: true, Connected: true}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gateway.AuthStatus{Authenticated: true, Connected: true})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []gateway.Account{{ID: Account, AccountID: Account, Currency: "USD", Type: "DEMO"}})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"netliquidation": map[string]interface{}{"amount": s.NetLiquidation, "currency": "USD", "isNull": false},
		"availablefunds": map[string]interface{}{"amount": s.NetLiquidation * 0.9, "currency": "USD", "isNull": false},
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mux.Vars(r)["page"] != "0" || len(s.Positions) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, s.Positions)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results, ok := s.Contracts[strings.ToUpper(r.URL.Query().Get("symbol"))]
	if !ok {
		writeJSON(w, http.StatusOK, []gateway.SearchResult{})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSecdef(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConIDs []int64 `json:"conids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []gateway.ContractInfo
	for _, id := range body.ConIDs {
		for _, results := range s.Contracts {
			for _, c := range results {
				if int64(c.ConID) == id {
					infos = append(infos, gateway.ContractInfo{ConID: c.ConID, Ticker: c.Symbol, Name: c.CompanyName,
						AssetClass: c.Sections[0].SecType, Currency: "USD"})
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"secdef": infos})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, gateway.History{
		Symbol:     q.Get("conid"),
		TimePeriod: q.Get("period"),
		Data: []gateway.Bar{
			{Open: 1.10, High: 1.12, Low: 1.09, Close: 1.11, Volume: 1000, Time: 1700000000000},
			{Open: 1.11, High: 1.13, Low: 1.10, Close: 1.12, Volume: 1200, Time: 1700086400000},
		},
	})
}

func (s *Server) handleLiveOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]gateway.LiveOrder, 0, len(s.Orders))
	for _, o := range s.Orders {
		orders = append(orders, *o)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "snapshot": true})
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Orders []gateway.OrderRequest `json:"orders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Orders) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, body.Orders)
	if s.Prompts > 0 {
		s.pending = append(s.pending, body.Orders)
		writeJSON(w, http.StatusOK, s.prompt())
		return
	}
	writeJSON(w, http.StatusOK, s.accept(body.Orders))
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no pending reply"})
		return
	}
	s.Prompts--
	if s.Prompts > 0 {
		writeJSON(w, http.StatusOK, s.prompt())
		return
	}
	orders := s.pending[0]
	s.pending = s.pending[1:]
	writeJSON(w, http.StatusOK, s.accept(orders))
}

func (s *Server) prompt() []gateway.OrderReply {
	return []gateway.OrderReply{{
		ID:         fmt.Sprintf("reply-%d", s.Prompts),
		Message:    []string{"You are submitting an order without market data. Are you sure?"},
		MessageIDs: []string{"o354"},
	}}
}

// accept stores orders and returns acknowledgements. Callers hold s.mu.
func (s *Server) accept(orders []gateway.OrderRequest) []gateway.OrderReply {
	idsByRef := map[string]int{}
	replies := make([]gateway.OrderReply, 0, len(orders))
	for _, o := range orders {
		s.nextID++
		id := s.nextID
		if o.COID != "" {
			idsByRef[o.COID] = id
		}

		lo := &gateway.LiveOrder{
			Account:           o.AccountID,
			ConID:             gateway.ConID(o.ConID),
			OrderID:           gateway.ConID(id),
			OrderRef:          o.COID,
			Ticker:            o.Ticker,
			Side:              o.Side,
			OrderType:         o.OrderType,
			TimeInForce:       o.TIF,
			TotalSize:         gateway.Number(o.Quantity),
			RemainingQuantity: gateway.Number(o.Quantity),
			Status:            s.InitialStatus,
		}
		if o.Price != nil {
			lo.Price = gateway.Number(*o.Price)
		}
		if o.AuxPrice != nil {
			lo.AuxPrice = gateway.Number(*o.AuxPrice)
		}
		if o.TrailingAmt != nil && o.TrailingType == "amt" {
			lo.AuxPrice = gateway.Number(*o.TrailingAmt)
		}
		if o.ParentID != "" {
			lo.ParentID = gateway.ConID(idsByRef[o.ParentID])
		}
		s.Orders[strconv.Itoa(id)] = lo

		replies = append(replies, gateway.OrderReply{
			OrderID:      strconv.Itoa(id),
			LocalOrderID: o.COID,
			OrderStatus:  s.InitialStatus,
		})
	}
	return replies
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req gateway.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "OrderID " + id + " doesn't exist"})
		return
	}
	s.Modified[id] = req
	o.TotalSize = gateway.Number(req.Quantity)
	o.TimeInForce = req.TIF
	if req.Price != nil {
		o.Price = gateway.Number(*req.Price)
	}
	if req.AuxPrice != nil {
		o.AuxPrice = gateway.Number(*req.AuxPrice)
	}
	writeJSON(w, http.StatusOK, []gateway.OrderReply{{OrderID: id, OrderStatus: o.Status}})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "OrderID " + id + " doesn't exist"})
		return
	}
	o.Status = "Cancelled"
	writeJSON(w, http.StatusOK, map[string]interface{}{"order_id": id, "msg": "Request was submitted", "conid": -1})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":      o.OrderID,
		"conid":         o.ConID,
		"order_status":  o.Status,
		"side":          o.Side,
		"order_type":    o.OrderType,
		"total_size":    fmt.Sprint(float64(o.TotalSize)),
		"cum_fill":      fmt.Sprint(float64(o.FilledQuantity)),
		"average_price": fmt.Sprint(float64(o.AvgPrice)),
	})
}

func (s *Server) handleWatchlists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists := make([]gateway.WatchlistSummary, 0, len(s.Watchlists))
	for _, wl := range s.Watchlists {
		lists = append(lists, gateway.WatchlistSummary{ID: wl.ID, Name: wl.Name})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"user_lists": lists}})
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		wl, ok := s.Watchlists[r.URL.Query().Get("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "watchlist not found"})
			return
		}
		writeJSON(w, http.StatusOK, wl)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		delete(s.Watchlists, id)
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"deleted": id}})
	case http.MethodPost:
		var body struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Rows []struct {
				C int64 `json:"C"`
			} `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		wl := &gateway.Watchlist{ID: body.ID, Name: body.Name}
		for _, row := range body.Rows {
			wl.Instruments = append(wl.Instruments, gateway.WatchlistInstrument{ConID: gateway.ConID(row.C)})
		}
		s.Watchlists[body.ID] = wl
		writeJSON(w, http.StatusOK, map[string]string{"id": body.ID, "hash": "1"})
	}
}

func (s *Server) handleScannerParams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.Scanner)
}

func (s *Server) handleScannerRun(w http.ResponseWriter, r *http.Request) {
	var req gateway.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, gateway.ScanResult{Contracts: []gateway.ScanContract{
		{ServerID: "0", Symbol: "AAPL", ConID: 265598, CompanyName: "APPLE INC", SecType: "STK"},
	}})
}
