package order

import "strings"

// Side represents order direction
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Reverse returns the opposite side
func (s Side) Reverse() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is a canonical side
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide normalizes a case-insensitive direction
func ParseSide(v string) Side {
	return Side(strings.ToUpper(strings.TrimSpace(v)))
}

// Kind represents the order type understood by the gateway
type Kind string

const (
	KindMarket     Kind = "MKT"
	KindLimit      Kind = "LMT"
	KindStop       Kind = "STP"
	KindStopLimit  Kind = "STP LMT"
	KindTrail      Kind = "TRAIL"
	KindTrailLimit Kind = "TRAILLMT"
)

var kindAliases = map[string]Kind{
	"MKT":         KindMarket,
	"MARKET":      KindMarket,
	"LMT":         KindLimit,
	"LIMIT":       KindLimit,
	"STP":         KindStop,
	"STOP":        KindStop,
	"STP LMT":     KindStopLimit,
	"STPLMT":      KindStopLimit,
	"STOP_LIMIT":  KindStopLimit,
	"STOP LIMIT":  KindStopLimit,
	"TRAIL":       KindTrail,
	"TRAILLMT":    KindTrailLimit,
	"TRAIL LIMIT": KindTrailLimit,
	"TRAILLIMIT":  KindTrailLimit,
	"TRAIL_LIMIT": KindTrailLimit,
}

// ParseKind normalizes a kind name, returning the upper-cased input when unknown
func ParseKind(v string) Kind {
	key := strings.ToUpper(strings.Join(strings.Fields(v), " "))
	if k, ok := kindAliases[key]; ok {
		return k
	}
	return Kind(key)
}

// Valid reports whether k is one of the six recognized kinds
func (k Kind) Valid() bool {
	switch k {
	case KindMarket, KindLimit, KindStop, KindStopLimit, KindTrail, KindTrailLimit:
		return true
	}
	return false
}

// NeedsLimitPrice reports whether the kind carries a limit price
func (k Kind) NeedsLimitPrice() bool {
	return k == KindLimit || k == KindStopLimit
}

// NeedsStopPrice reports whether the kind carries a stop (aux) price
func (k Kind) NeedsStopPrice() bool {
	return k == KindStop || k == KindStopLimit
}

// IsTrailing reports whether the kind is a trailing order
func (k Kind) IsTrailing() bool {
	return k == KindTrail || k == KindTrailLimit
}

// TimeInForce represents how long an order stays active
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFGTD TimeInForce = "GTD"
)

// ParseTimeInForce normalizes a case-insensitive time-in-force
func ParseTimeInForce(v string) TimeInForce {
	return TimeInForce(strings.ToUpper(strings.TrimSpace(v)))
}

// Valid reports whether t is one of the four recognized values
func (t TimeInForce) Valid() bool {
	switch t {
	case TIFDay, TIFGTC, TIFIOC, TIFGTD:
		return true
	}
	return false
}

// Security types used by the unit policy and contract resolution
const (
	SecTypeCash  = "CASH"
	SecTypeStock = "STK"
)

// Instrument identifies what an order trades
type Instrument struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"sec_type"`
	Currency string `json:"currency,omitempty"`
	Exchange string `json:"exchange,omitempty"`
	ConID    int64  `json:"conid,omitempty"`
}

// IsCash reports whether the instrument is a currency pair
func (i Instrument) IsCash() bool {
	return strings.EqualFold(i.SecType, SecTypeCash)
}

// BracketSpec attaches take-profit and stop-loss exits to an entry
type BracketSpec struct {
	TakeProfit   *float64 `json:"take_profit,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TrailingStop *float64 `json:"trailing_stop,omitempty"`
}

// Intent is the user's requested order before validation
type Intent struct {
	Instrument      Instrument   `json:"instrument"`
	Side            Side         `json:"direction"`
	Size            float64      `json:"size"` // lots
	Kind            Kind         `json:"order_type"`
	LimitPrice      *float64     `json:"limit_price,omitempty"`
	StopPrice       *float64     `json:"stop_price,omitempty"`
	TrailingAmount  *float64     `json:"trailing_amount,omitempty"`
	TrailingPercent *float64     `json:"trailing_percent,omitempty"`
	TIF             TimeInForce  `json:"tif"`
	OutsideRTH      bool         `json:"outside_rth"`
	Bracket         *BracketSpec `json:"bracket,omitempty"`
}

// Normalize returns a copy with case-insensitive fields in canonical form
func (in Intent) Normalize() Intent {
	in.Side = ParseSide(string(in.Side))
	in.Kind = ParseKind(string(in.Kind))
	in.TIF = ParseTimeInForce(string(in.TIF))
	return in
}

// IsBracket reports whether the intent asks for linked exit orders
func (in Intent) IsBracket() bool {
	return in.Bracket != nil
}

// Role tags an order's position inside a group
type Role string

const (
	RoleStandalone Role = "STANDALONE"
	RoleEntry      Role = "ENTRY"
	RoleTakeProfit Role = "TAKE_PROFIT"
	RoleStopLoss   Role = "STOP_LOSS"
)

// Order is a single order ready for the submission channel
type Order struct {
	Ref             string      `json:"ref"`
	ParentRef       string      `json:"parent_ref,omitempty"`
	Role            Role        `json:"role"`
	Action          Side        `json:"action"`
	Quantity        float64     `json:"quantity"`
	Kind            Kind        `json:"order_type"`
	TIF             TimeInForce `json:"tif"`
	OutsideRTH      bool        `json:"outside_rth"`
	LimitPrice      *float64    `json:"limit_price,omitempty"`
	AuxPrice        *float64    `json:"aux_price,omitempty"` // stop price, or trailing amount for TRAIL
	TrailingPercent *float64    `json:"trailing_percent,omitempty"`
	Transmit        bool        `json:"transmit"`
}

// IsChild reports whether the order is linked to a parent
func (o *Order) IsChild() bool {
	return o.ParentRef != ""
}

// Group is the ordered output of the builder: one standalone order or an
// entry followed by its take-profit and stop-loss
type Group []Order

// IsBracket reports whether the group is a linked bracket
func (g Group) IsBracket() bool {
	return len(g) == 3
}

// Entry returns the first order of the group
func (g Group) Entry() Order {
	return g[0]
}

// Float returns a pointer to v, handy for optional price fields
func Float(v float64) *float64 {
	return &v
}
