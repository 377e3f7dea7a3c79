package order

import (
	"context"
	"errors"
	"math"
)

// LiveOrder is an order already known to the brokerage session
type LiveOrder struct {
	ID         string     `json:"id"`
	Instrument Instrument `json:"instrument"`
	Order      Order      `json:"order"`
	Status     string     `json:"status"`
}

// Session is the brokerage-side view the modifier works through
type Session interface {
	// LookupOrder returns the live order or an error wrapping ErrOrderNotFound
	LookupOrder(ctx context.Context, orderID string) (*LiveOrder, error)

	// Resubmit sends the mutated order back to the broker
	Resubmit(ctx context.Context, live *LiveOrder) error
}

// Changes is a partial patch; nil fields are left untouched
type Changes struct {
	LimitPrice     *float64     `json:"limit_price,omitempty"`
	StopPrice      *float64     `json:"stop_price,omitempty"`
	TrailingAmount *float64     `json:"trailing_amount,omitempty"`
	Size           *float64     `json:"size,omitempty"` // lots
	TIF            *TimeInForce `json:"tif,omitempty"`
}

// Empty reports whether the patch changes nothing
func (c Changes) Empty() bool {
	return c.LimitPrice == nil && c.StopPrice == nil && c.TrailingAmount == nil &&
		c.Size == nil && c.TIF == nil
}

func (c Changes) validate() error {
	if c.Size != nil && !validSize(*c.Size) {
		return &ValidationError{Code: CodeInvalidSize, Field: "size", Message: "size must be a finite number greater than 0"}
	}
	if c.TIF != nil && !ParseTimeInForce(string(*c.TIF)).Valid() {
		return &ValidationError{Code: CodeInvalidTimeInForce, Field: "tif", Message: "invalid TIF, must be one of DAY, GTC, IOC, GTD"}
	}
	return nil
}

// Modifier applies partial patches to live orders. It keeps no state;
// everything lives in the session.
type Modifier struct {
	session Session
	policy  UnitPolicy
}

// NewModifier creates a modifier. policy converts Changes.Size from lots and
// defaults to DefaultLotPolicy when nil.
func NewModifier(session Session, policy UnitPolicy) *Modifier {
	if policy == nil {
		policy = DefaultLotPolicy()
	}
	return &Modifier{session: session, policy: policy}
}

// Modify looks up orderID, applies the non-nil fields of changes and
// re-submits it. An empty patch is a no-op once the order is found.
func (m *Modifier) Modify(ctx context.Context, orderID string, changes Changes) error {
	if err := changes.validate(); err != nil {
		return err
	}

	live, err := m.session.LookupOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return &ModificationError{Code: CodeOrderNotFound, OrderID: orderID, Err: err}
		}
		return &ModificationError{Code: CodeChannelRejected, OrderID: orderID, Err: err}
	}
	if live == nil {
		return &ModificationError{Code: CodeOrderNotFound, OrderID: orderID, Err: ErrOrderNotFound}
	}

	if changes.Empty() {
		return nil
	}

	m.apply(live, changes)

	if err := m.session.Resubmit(ctx, live); err != nil {
		return &ModificationError{Code: CodeChannelRejected, OrderID: orderID, Err: err}
	}
	return nil
}

func (m *Modifier) apply(live *LiveOrder, c Changes) {
	o := &live.Order
	if c.LimitPrice != nil {
		o.LimitPrice = clone(c.LimitPrice)
	}
	if c.StopPrice != nil {
		o.AuxPrice = clone(c.StopPrice)
	}
	if c.TrailingAmount != nil {
		o.AuxPrice = clone(c.TrailingAmount)
		o.TrailingPercent = nil
	}
	if c.Size != nil {
		o.Quantity = math.Abs(m.policy.Units(live.Instrument, *c.Size))
	}
	if c.TIF != nil {
		o.TIF = ParseTimeInForce(string(*c.TIF))
	}
}
