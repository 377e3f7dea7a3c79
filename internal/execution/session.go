package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
)

// OrderBook is an order.Session that can also list its orders
type OrderBook interface {
	order.Session
	LiveOrders(ctx context.Context) ([]order.LiveOrder, error)
}

// SessionAdapter exposes the gateway as an order.Session for the modifier
type SessionAdapter struct {
	client *gateway.Client
}

// NewSessionAdapter creates an adapter over client
func NewSessionAdapter(client *gateway.Client) *SessionAdapter {
	return &SessionAdapter{client: client}
}

// LookupOrder implements order.Session
func (s *SessionAdapter) LookupOrder(ctx context.Context, orderID string) (*order.LiveOrder, error) {
	lo, err := s.client.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", order.ErrOrderNotFound, err)
		}
		return nil, &ChannelError{Op: "lookup order", Ref: orderID, Err: err}
	}

	live := toLiveOrder(*lo)
	live.ID = orderID
	return &live, nil
}

// LiveOrders lists the session's orders
func (s *SessionAdapter) LiveOrders(ctx context.Context) ([]order.LiveOrder, error) {
	orders, err := s.client.LiveOrders(ctx)
	if err != nil {
		return nil, &ChannelError{Op: "live orders", Err: err}
	}
	out := make([]order.LiveOrder, 0, len(orders))
	for _, lo := range orders {
		out = append(out, toLiveOrder(lo))
	}
	return out, nil
}

func toLiveOrder(lo gateway.LiveOrder) order.LiveOrder {
	return order.LiveOrder{
		ID: fmt.Sprint(int64(lo.OrderID)),
		Instrument: order.Instrument{
			Symbol:   lo.Ticker,
			SecType:  lo.SecType,
			Currency: lo.CashCurrency,
			Exchange: lo.Exchange,
			ConID:    int64(lo.ConID),
		},
		Order:  gateway.FromWire(lo),
		Status: lo.Status,
	}
}

// Resubmit implements order.Session. Linkage is never changed by a modify.
func (s *SessionAdapter) Resubmit(ctx context.Context, live *order.LiveOrder) error {
	req := gateway.ToWire("", live.Instrument, live.Order)
	req.COID = ""
	req.ParentID = ""

	if _, err := s.client.ModifyOrder(ctx, live.ID, req); err != nil {
		return &ChannelError{Op: "modify order", Ref: live.ID, Err: err}
	}
	return nil
}
