package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/ibdash/internal/order"
)

// ErrChannelUnavailable marks every failure reported by a submission channel
var ErrChannelUnavailable = errors.New("order channel unavailable")

// Channel submits built orders to a brokerage session
// ⭐ SSOT: the only path from a built order to the broker
type Channel interface {
	// Submit hands one order to the broker. Orders with Transmit=false may be
	// held back until the transmitting order of their group arrives.
	Submit(ctx context.Context, inst order.Instrument, o order.Order) (Handle, error)

	// QueryStatus reports the broker's view of a submitted order. An order
	// the broker has not acknowledged yet has an empty Status.
	QueryStatus(ctx context.Context, h Handle) (Status, error)

	// Cancel cancels a working order by broker id
	Cancel(ctx context.Context, orderID string) error
}

// Handle identifies a submitted order. OrderID is empty until the broker
// has assigned one.
type Handle struct {
	Ref     string `json:"ref"`
	OrderID string `json:"order_id,omitempty"`
}

// Status is the broker-side state of one order
type Status struct {
	OrderID      string  `json:"order_id,omitempty"`
	Status       string  `json:"status"`
	Filled       float64 `json:"filled"`
	Remaining    float64 `json:"remaining"`
	AvgFillPrice float64 `json:"avg_fill_price"`
}

// Acknowledged reports whether the broker reported any status at all
func (s Status) Acknowledged() bool {
	return s.Status != ""
}

// ChannelError wraps a broker or transport failure. The underlying cause is
// kept for logs; callers should treat it as opaque.
type ChannelError struct {
	Op  string
	Ref string
	Err error
}

func (e *ChannelError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrChannelUnavailable
func (e *ChannelError) Is(target error) bool {
	return target == ErrChannelUnavailable
}
