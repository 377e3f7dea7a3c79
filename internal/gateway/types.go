package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number decodes a JSON number that the gateway may send quoted, bare or null
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("gateway: invalid number %s: %w", b, err)
	}
	*n = Number(v)
	return nil
}

// Float returns n as float64
func (n Number) Float() float64 { return float64(n) }

// ConID is a contract identifier, sent as either a string or a number
type ConID int64

func (c *ConID) UnmarshalJSON(b []byte) error {
	var n Number
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = ConID(n)
	return nil
}

// Account is an entry of /portfolio/accounts
type Account struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId"`
	Title       string `json:"accountTitle"`
	DisplayName string `json:"displayName"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
}

// SummaryValue is one field of the account summary
type SummaryValue struct {
	Amount   Number      `json:"amount"`
	Currency string      `json:"currency"`
	IsNull   bool        `json:"isNull"`
	Value    interface{} `json:"value"`
}

// Summary is /portfolio/{acct}/summary keyed by lower-case tag
type Summary map[string]SummaryValue

// NetLiquidation returns the account's net liquidation value
func (s Summary) NetLiquidation() (float64, bool) {
	v, ok := s["netliquidation"]
	if !ok || v.IsNull {
		return 0, false
	}
	return v.Amount.Float(), true
}

// Position is an entry of /portfolio/{acct}/positions/{page}
type Position struct {
	AccountID     string `json:"acctId"`
	ConID         ConID  `json:"conid"`
	ContractDesc  string `json:"contractDesc"`
	Ticker        string `json:"ticker"`
	AssetClass    string `json:"assetClass"`
	Currency      string `json:"currency"`
	Position      Number `json:"position"`
	MarketPrice   Number `json:"mktPrice"`
	MarketValue   Number `json:"mktValue"`
	AvgCost       Number `json:"avgCost"`
	UnrealizedPnL Number `json:"unrealizedPnl"`
	RealizedPnL   Number `json:"realizedPnl"`
}

// Symbol returns the position's trading symbol. Currency pairs are
// reported as "EUR.USD" and are returned as "EURUSD".
func (p Position) Symbol() string {
	if strings.EqualFold(p.AssetClass, "CASH") {
		return strings.ReplaceAll(p.ContractDesc, ".", "")
	}
	if p.Ticker != "" {
		return p.Ticker
	}
	return p.ContractDesc
}

// ContractSection lists a security type a search hit is available as
type ContractSection struct {
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Months   string `json:"months,omitempty"`
}

// SearchResult is an entry of /iserver/secdef/search
type SearchResult struct {
	ConID         ConID             `json:"conid"`
	CompanyHeader string            `json:"companyHeader"`
	CompanyName   string            `json:"companyName"`
	Symbol        string            `json:"symbol"`
	Description   string            `json:"description"`
	Sections      []ContractSection `json:"sections"`
}

// Offers reports whether the hit trades as secType
func (r SearchResult) Offers(secType string) bool {
	if secType == "" {
		return true
	}
	for _, s := range r.Sections {
		if strings.EqualFold(s.SecType, secType) {
			return true
		}
	}
	return false
}

// ContractInfo is an entry of /trsrv/secdef
type ContractInfo struct {
	ConID           ConID  `json:"conid"`
	Name            string `json:"name"`
	Ticker          string `json:"ticker"`
	AssetClass      string `json:"assetClass"`
	Currency        string `json:"currency"`
	ListingExchange string `json:"listingExchange"`
	Group           string `json:"group,omitempty"`
	Sector          string `json:"sector,omitempty"`
}

// Bar is one OHLCV bar of a price history
type Bar struct {
	Open   Number `json:"o"`
	High   Number `json:"h"`
	Low    Number `json:"l"`
	Close  Number `json:"c"`
	Volume Number `json:"v"`
	Time   int64  `json:"t"` // epoch milliseconds
}

// History is /iserver/marketdata/history
type History struct {
	Symbol     string `json:"symbol"`
	Text       string `json:"text"`
	TimePeriod string `json:"timePeriod"`
	BarLength  int    `json:"barLength"`
	Data       []Bar  `json:"data"`
}

// LiveOrder is an entry of /iserver/account/orders
type LiveOrder struct {
	Account           string `json:"acct"`
	ConID             ConID  `json:"conid"`
	OrderID           ConID  `json:"orderId"`
	ParentID          ConID  `json:"parentId,omitempty"`
	OrderRef          string `json:"order_ref,omitempty"`
	Ticker            string `json:"ticker"`
	SecType           string `json:"secType"`
	CashCurrency      string `json:"cashCcy,omitempty"`
	Exchange          string `json:"listingExchange"`
	Description       string `json:"orderDesc"`
	Side              string `json:"side"`
	OrderType         string `json:"orderType"`
	OrigOrderType     string `json:"origOrderType"`
	TimeInForce       string `json:"timeInForce"`
	Price             Number `json:"price"`
	AuxPrice          Number `json:"auxPrice"`
	TotalSize         Number `json:"totalSize"`
	FilledQuantity    Number `json:"filledQuantity"`
	RemainingQuantity Number `json:"remainingQuantity"`
	AvgPrice          Number `json:"avgPrice"`
	Status            string `json:"status"`
	LastExecutionTime string `json:"lastExecutionTime,omitempty"`
}

// OrderRequest is one order in the gateway's place/modify payload
type OrderRequest struct {
	AccountID    string   `json:"acctId,omitempty"`
	ConID        int64    `json:"conid"`
	SecType      string   `json:"secType,omitempty"` // "conid:type"
	COID         string   `json:"cOID,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
	OrderType    string   `json:"orderType"`
	Side         string   `json:"side"`
	Quantity     float64  `json:"quantity"`
	Price        *float64 `json:"price,omitempty"`
	AuxPrice     *float64 `json:"auxPrice,omitempty"`
	TrailingAmt  *float64 `json:"trailingAmt,omitempty"`
	TrailingType string   `json:"trailingType,omitempty"`
	TIF          string   `json:"tif"`
	OutsideRTH   bool     `json:"outsideRTH"`
	Ticker       string   `json:"ticker,omitempty"`
}

// OrderReply is one element of a place/modify/reply response. Either an
// acknowledgement (OrderID set) or a confirmation prompt (ID and Message set).
type OrderReply struct {
	OrderID      string   `json:"order_id,omitempty"`
	LocalOrderID string   `json:"local_order_id,omitempty"`
	OrderStatus  string   `json:"order_status,omitempty"`
	ID           string   `json:"id,omitempty"`
	Message      []string `json:"message,omitempty"`
	MessageIDs   []string `json:"messageIds,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// IsPrompt reports whether the reply asks for confirmation
func (r OrderReply) IsPrompt() bool {
	return r.OrderID == "" && r.ID != ""
}

// OrderStatus is /iserver/account/order/status/{id}
type OrderStatus struct {
	OrderID      ConID  `json:"order_id"`
	ConID        ConID  `json:"conid"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderType    string `json:"order_type"`
	Status       string `json:"order_status"`
	TotalSize    Number `json:"total_size"`
	CumFill      Number `json:"cum_fill"`
	AveragePrice Number `json:"average_price"`
	LimitPrice   Number `json:"limit_price"`
	StopPrice    Number `json:"stop_price"`
	TIF          string `json:"tif"`
}

// Remaining returns the unfilled quantity
func (s OrderStatus) Remaining() float64 {
	r := s.TotalSize.Float() - s.CumFill.Float()
	if r < 0 {
		return 0
	}
	return r
}

// CancelReply is the response of an order cancellation
type CancelReply struct {
	OrderID ConID  `json:"order_id"`
	Message string `json:"msg"`
	ConID   ConID  `json:"conid"`
	Error   string `json:"error,omitempty"`
}

// WatchlistSummary is an entry of /iserver/watchlists
type WatchlistSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Modified int64  `json:"modified"`
	ReadOnly bool   `json:"read_only"`
	Type     string `json:"type"`
}

// WatchlistInstrument is a row of a watchlist
type WatchlistInstrument struct {
	ConID      ConID  `json:"conid"`
	Name       string `json:"name"`
	FullName   string `json:"fullName"`
	AssetClass string `json:"assetClass"`
	Ticker     string `json:"ticker"`
}

// Watchlist is /iserver/watchlist?id=
type Watchlist struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	ReadOnly    bool                  `json:"readOnly"`
	Instruments []WatchlistInstrument `json:"instruments"`
}

// AuthStatus is the brokerage session state
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Competing     bool   `json:"competing"`
	Connected     bool   `json:"connected"`
	Message       string `json:"message,omitempty"`
}

// TickleResponse is the response of /tickle
type TickleResponse struct {
	Session string `json:"session"`
	IServer struct {
		AuthStatus AuthStatus `json:"authStatus"`
	} `json:"iserver"`
}

// apiError is the error envelope some endpoints return with a 200 status
type apiError struct {
	Error string `json:"error"`
}

func decodeAPIError(raw json.RawMessage) string {
	var e apiError
	if json.Unmarshal(raw, &e) == nil {
		return e.Error
	}
	return ""
}
