package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/ibdash/internal/order"
)

// maxReplyRounds bounds how many confirmation prompts are answered per request
const maxReplyRounds = 5

var wireOrderTypes = map[order.Kind]string{
	order.KindMarket:     "MKT",
	order.KindLimit:      "LMT",
	order.KindStop:       "STP",
	order.KindStopLimit:  "STOP_LIMIT",
	order.KindTrail:      "TRAIL",
	order.KindTrailLimit: "TRAILLMT",
}

// ToWire maps a built order onto the gateway payload. Local refs become
// cOID/parentId so the gateway links a bracket submitted in one request.
func ToWire(acct string, inst order.Instrument, o order.Order) OrderRequest {
	req := OrderRequest{
		AccountID:  acct,
		ConID:      inst.ConID,
		COID:       o.Ref,
		ParentID:   o.ParentRef,
		OrderType:  wireOrderTypes[o.Kind],
		Side:       string(o.Action),
		Quantity:   o.Quantity,
		TIF:        string(o.TIF),
		OutsideRTH: o.OutsideRTH,
		Ticker:     inst.Symbol,
	}
	if inst.ConID != 0 && inst.SecType != "" {
		req.SecType = fmt.Sprintf("%d:%s", inst.ConID, inst.SecType)
	}

	switch o.Kind {
	case order.KindLimit:
		req.Price = o.LimitPrice
	case order.KindStop:
		req.Price = o.AuxPrice
	case order.KindStopLimit:
		req.Price = o.LimitPrice
		req.AuxPrice = o.AuxPrice
	case order.KindTrail, order.KindTrailLimit:
		req.Price = o.LimitPrice
		if o.AuxPrice != nil {
			req.TrailingAmt = o.AuxPrice
			req.TrailingType = "amt"
		} else if o.TrailingPercent != nil {
			req.TrailingAmt = o.TrailingPercent
			req.TrailingType = "%"
		}
	}
	return req
}

// FromWire maps a live gateway order back onto an order.Order
func FromWire(lo LiveOrder) order.Order {
	o := order.Order{
		Ref:      lo.OrderRef,
		Action:   order.ParseSide(lo.Side),
		Quantity: lo.TotalSize.Float(),
		Kind:     kindFromWire(lo.OrderType),
		TIF:      order.ParseTimeInForce(lo.TimeInForce),
		Transmit: true,
		Role:     order.RoleStandalone,
	}
	if o.Action == "B" {
		o.Action = order.SideBuy
	} else if o.Action == "S" {
		o.Action = order.SideSell
	}
	if lo.ParentID != 0 {
		o.ParentRef = fmt.Sprint(int64(lo.ParentID))
	}

	switch o.Kind {
	case order.KindLimit:
		o.LimitPrice = nonZero(lo.Price)
	case order.KindStop:
		o.AuxPrice = nonZero(lo.Price)
	case order.KindStopLimit:
		o.LimitPrice = nonZero(lo.Price)
		o.AuxPrice = nonZero(lo.AuxPrice)
	case order.KindTrail, order.KindTrailLimit:
		o.AuxPrice = nonZero(lo.AuxPrice)
		if o.Kind == order.KindTrailLimit {
			o.LimitPrice = nonZero(lo.Price)
		}
	}
	return o
}

func kindFromWire(t string) order.Kind {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "STOP_LIMIT", "STOP LIMIT", "STP LMT":
		return order.KindStopLimit
	case "STOP", "STP":
		return order.KindStop
	case "LIMIT", "LMT":
		return order.KindLimit
	case "MARKET", "MKT":
		return order.KindMarket
	case "TRAILING STOP", "TRAIL":
		return order.KindTrail
	case "TRAILING STOP LIMIT", "TRAILLMT", "TRAIL LIMIT":
		return order.KindTrailLimit
	}
	return order.ParseKind(t)
}

func nonZero(n Number) *float64 {
	if n == 0 {
		return nil
	}
	return order.Float(n.Float())
}

// PlaceOrders submits one order or a linked group in a single request and
// answers any confirmation prompts
func (c *Client) PlaceOrders(ctx context.Context, orders []OrderRequest) ([]OrderReply, error) {
	acct, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].AccountID = acct
	}

	body := struct {
		Orders []OrderRequest `json:"orders"`
	}{Orders: orders}

	var replies []OrderReply
	if err := c.post(ctx, "place orders", fmt.Sprintf("/iserver/account/%s/orders", acct), body, &replies); err != nil {
		return nil, err
	}
	return c.confirm(ctx, "place orders", replies)
}

// ModifyOrder re-submits a live order with new parameters
func (c *Client) ModifyOrder(ctx context.Context, orderID string, req OrderRequest) ([]OrderReply, error) {
	acct, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	req.AccountID = acct

	var replies []OrderReply
	if err := c.post(ctx, "modify order", fmt.Sprintf("/iserver/account/%s/order/%s", acct, orderID), req, &replies); err != nil {
		return nil, err
	}
	return c.confirm(ctx, "modify order", replies)
}

// confirm answers "are you sure" prompts until the gateway acknowledges the order
func (c *Client) confirm(ctx context.Context, op string, replies []OrderReply) ([]OrderReply, error) {
	for round := 0; ; round++ {
		if len(replies) == 0 {
			return nil, &APIError{Op: op, Message: "empty reply"}
		}
		for _, r := range replies {
			if r.Error != "" {
				return nil, &APIError{Op: op, Message: r.Error}
			}
		}
		if !replies[0].IsPrompt() {
			return replies, nil
		}
		if round >= maxReplyRounds {
			return nil, &APIError{Op: op, Message: "too many confirmation prompts"}
		}

		prompt := replies[0]
		c.logger.WithFields(map[string]interface{}{
			"reply_id": prompt.ID,
			"message":  strings.Join(prompt.Message, " | "),
		}).Warn("Confirming gateway order prompt")

		replies = nil
		body := map[string]bool{"confirmed": true}
		if err := c.post(ctx, "order reply", "/iserver/reply/"+prompt.ID, body, &replies); err != nil {
			return nil, err
		}
	}
}

// CancelOrder cancels a live order
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelReply, error) {
	acct, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var reply CancelReply
	if err := c.delete(ctx, "cancel order", fmt.Sprintf("/iserver/account/%s/order/%s", acct, orderID), nil, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &APIError{Op: "cancel order", Message: reply.Error}
	}
	return &reply, nil
}

// LiveOrders lists the session's working and recently completed orders
func (c *Client) LiveOrders(ctx context.Context) ([]LiveOrder, error) {
	var resp struct {
		Orders []LiveOrder `json:"orders"`
	}
	if err := c.get(ctx, "live orders", "/iserver/account/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// FindOrder returns the live order with orderID, or an error wrapping ErrNotFound
func (c *Client) FindOrder(ctx context.Context, orderID string) (*LiveOrder, error) {
	orders, err := c.LiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if fmt.Sprint(int64(orders[i].OrderID)) == orderID {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
}

// OrderStatus returns the status of a single order
func (c *Client) OrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var status OrderStatus
	if err := c.get(ctx, "order status", "/iserver/account/order/status/"+orderID, nil, &status); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 400 {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return &status, nil
}
