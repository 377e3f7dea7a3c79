package tradelog

import (
	"context"
	"time"

	"github.com/wonny/ibdash/internal/order"
)

// Leg is the broker outcome of one order of a placement
type Leg struct {
	Role         order.Role `json:"role"`
	Ref          string     `json:"ref"`
	OrderID      string     `json:"order_id"`
	Status       string     `json:"status"`
	Filled       float64    `json:"filled"`
	Remaining    float64    `json:"remaining"`
	AvgFillPrice float64    `json:"avg_fill_price"`
}

// Record is one trade log entry: the intent as submitted plus what the
// broker reported back
type Record struct {
	Timestamp  time.Time        `json:"timestamp"`
	Symbol     string           `json:"symbol"`
	Instrument order.Instrument `json:"instrument"`
	Intent     order.Intent     `json:"intent"`
	DryRun     bool             `json:"dry_run"`
	Legs       []Leg            `json:"legs,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Status summarises the record for indexing: the entry leg's status, or
// "Error" when placement failed
func (r Record) Status() string {
	if r.Error != "" {
		return "Error"
	}
	if len(r.Legs) == 0 || r.Legs[0].Status == "" {
		return "Unacknowledged"
	}
	return r.Legs[0].Status
}

// Sink persists trade log records
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Multi fans a record out to every sink and returns the first error
type Multi []Sink

// Append implements Sink
func (m Multi) Append(ctx context.Context, rec Record) error {
	var first error
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
