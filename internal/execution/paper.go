package execution

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/ibdash/internal/order"
)

// PaperChannel accepts orders without a broker for DRY_RUN mode. Market
// entries fill immediately at the configured price; everything else rests
// as Submitted. It also serves as the order.Session in dry-run.
type PaperChannel struct {
	mu     sync.Mutex
	nextID int
	prices map[string]float64
	orders map[string]*paperOrder
	byRef  map[string]string
}

type paperOrder struct {
	live   order.LiveOrder
	filled float64
	avg    float64
}

// NewPaperChannel creates an empty paper channel
func NewPaperChannel() *PaperChannel {
	return &PaperChannel{
		nextID: 0,
		prices: make(map[string]float64),
		orders: make(map[string]*paperOrder),
		byRef:  make(map[string]string),
	}
}

// SetPrice sets the fill price for a symbol
func (p *PaperChannel) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// Submit implements Channel
func (p *PaperChannel) Submit(_ context.Context, inst order.Instrument, o order.Order) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := fmt.Sprintf("PAPER-%d", p.nextID)
	po := &paperOrder{live: order.LiveOrder{ID: id, Instrument: inst, Order: o, Status: "Submitted"}}

	if o.Kind == order.KindMarket && !o.IsChild() {
		if price, ok := p.prices[inst.Symbol]; ok {
			po.live.Status = "Filled"
			po.filled = o.Quantity
			po.avg = price
		}
	}
	if o.IsChild() {
		po.live.Status = "PreSubmitted"
	}

	p.orders[id] = po
	p.byRef[o.Ref] = id
	return Handle{Ref: o.Ref, OrderID: id}, nil
}

// QueryStatus implements Channel
func (p *PaperChannel) QueryStatus(_ context.Context, h Handle) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := h.OrderID
	if id == "" {
		id = p.byRef[h.Ref]
	}
	po, ok := p.orders[id]
	if !ok {
		return Status{}, &ChannelError{Op: "order status", Ref: h.Ref, Err: order.ErrOrderNotFound}
	}
	return Status{
		OrderID:      id,
		Status:       po.live.Status,
		Filled:       po.filled,
		Remaining:    po.live.Order.Quantity - po.filled,
		AvgFillPrice: po.avg,
	}, nil
}

// Cancel implements Channel
func (p *PaperChannel) Cancel(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return &ChannelError{Op: "cancel order", Ref: orderID, Err: order.ErrOrderNotFound}
	}
	po.live.Status = "Cancelled"
	return nil
}

// LookupOrder implements order.Session
func (p *PaperChannel) LookupOrder(_ context.Context, orderID string) (*order.LiveOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("paper order %s: %w", orderID, order.ErrOrderNotFound)
	}
	cp := po.live
	return &cp, nil
}

// Resubmit implements order.Session
func (p *PaperChannel) Resubmit(_ context.Context, live *order.LiveOrder) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[live.ID]
	if !ok {
		return fmt.Errorf("paper order %s: %w", live.ID, order.ErrOrderNotFound)
	}
	if po.live.Status == "Filled" || po.live.Status == "Cancelled" {
		return fmt.Errorf("paper order %s is %s", live.ID, po.live.Status)
	}
	po.live.Order = live.Order
	return nil
}

// LiveOrders implements OrderBook
func (p *PaperChannel) LiveOrders(_ context.Context) ([]order.LiveOrder, error) {
	return p.Orders(), nil
}

// Orders lists every paper order in submission order
func (p *PaperChannel) Orders() []order.LiveOrder {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]order.LiveOrder, 0, len(p.orders))
	for _, po := range p.orders {
		out = append(out, po.live)
	}
	sort.Slice(out, func(i, j int) bool {
		return paperSeq(out[i].ID) < paperSeq(out[j].ID)
	})
	return out
}

func paperSeq(id string) int {
	var n int
	_, _ = fmt.Sscanf(id, "PAPER-%d", &n)
	return n
}
