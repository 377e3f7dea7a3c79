package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/logger"
)

// GatewayChannel submits orders through the Client Portal gateway. Orders of
// a linked group are staged until the transmitting order arrives and then
// posted together so the gateway links them by cOID/parentId.
type GatewayChannel struct {
	client *gateway.Client
	logger *logger.Logger

	mu     sync.Mutex
	staged map[string][]gateway.OrderRequest // root ref -> pending requests
	ids    map[string]string                 // ref -> gateway order id
	conids map[string]int64
}

// NewGatewayChannel creates a channel over client
func NewGatewayChannel(client *gateway.Client, log *logger.Logger) *GatewayChannel {
	return &GatewayChannel{
		client: client,
		logger: log.WithField("component", "gateway_channel"),
		staged: make(map[string][]gateway.OrderRequest),
		ids:    make(map[string]string),
		conids: make(map[string]int64),
	}
}

// Submit implements Channel
func (c *GatewayChannel) Submit(ctx context.Context, inst order.Instrument, o order.Order) (Handle, error) {
	inst, err := c.resolve(ctx, inst)
	if err != nil {
		return Handle{}, &ChannelError{Op: "resolve contract", Ref: o.Ref, Err: err}
	}

	req := gateway.ToWire("", inst, o)
	root := o.Ref
	if o.IsChild() {
		root = o.ParentRef
	}

	c.mu.Lock()
	if !o.Transmit {
		c.staged[root] = append(c.staged[root], req)
		c.mu.Unlock()
		return Handle{Ref: o.Ref}, nil
	}
	group := append(c.staged[root], req)
	delete(c.staged, root)
	c.mu.Unlock()

	replies, err := c.client.PlaceOrders(ctx, group)
	if err != nil {
		return Handle{Ref: o.Ref}, &ChannelError{Op: "place orders", Ref: o.Ref, Err: err}
	}

	c.mu.Lock()
	for i, r := range replies {
		ref := r.LocalOrderID
		if ref == "" && i < len(group) {
			ref = group[i].COID
		}
		if ref != "" && r.OrderID != "" {
			c.ids[ref] = r.OrderID
		}
	}
	id := c.ids[o.Ref]
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"ref":      o.Ref,
		"order_id": id,
		"legs":     len(group),
		"symbol":   gateway.PairSymbol(inst),
	}).Info("Orders transmitted")

	return Handle{Ref: o.Ref, OrderID: id}, nil
}

// QueryStatus implements Channel
func (c *GatewayChannel) QueryStatus(ctx context.Context, h Handle) (Status, error) {
	id := h.OrderID
	if id == "" {
		id = c.OrderID(h.Ref)
	}
	if id == "" {
		return Status{}, nil
	}

	st, err := c.client.OrderStatus(ctx, id)
	if err != nil {
		return Status{OrderID: id}, &ChannelError{Op: "order status", Ref: h.Ref, Err: err}
	}
	return Status{
		OrderID:      id,
		Status:       st.Status,
		Filled:       st.CumFill.Float(),
		Remaining:    st.Remaining(),
		AvgFillPrice: st.AveragePrice.Float(),
	}, nil
}

// Cancel implements Channel
func (c *GatewayChannel) Cancel(ctx context.Context, orderID string) error {
	if _, err := c.client.CancelOrder(ctx, orderID); err != nil {
		return &ChannelError{Op: "cancel order", Ref: orderID, Err: err}
	}
	return nil
}

// OrderID returns the gateway id assigned to ref, or "" when not yet known
func (c *GatewayChannel) OrderID(ref string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids[ref]
}

func (c *GatewayChannel) resolve(ctx context.Context, inst order.Instrument) (order.Instrument, error) {
	if inst.ConID != 0 {
		return inst, nil
	}
	key := fmt.Sprintf("%s:%s:%s", inst.SecType, inst.Symbol, inst.Currency)

	c.mu.Lock()
	conid, ok := c.conids[key]
	c.mu.Unlock()
	if ok {
		inst.ConID = conid
		return inst, nil
	}

	resolved, err := c.client.ResolveConID(ctx, inst)
	if err != nil {
		return inst, err
	}
	if resolved.ConID == 0 {
		return inst, errors.New("contract id not resolved")
	}

	c.mu.Lock()
	c.conids[key] = resolved.ConID
	c.mu.Unlock()
	return resolved, nil
}
