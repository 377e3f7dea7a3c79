package execution

import (
	"context"
	"time"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/internal/tradelog"
	"github.com/wonny/ibdash/pkg/logger"
)

// Placer builds orders from an intent, submits them and records the outcome
// ⭐ SSOT: order placement flow lives here only
type Placer struct {
	builder *order.Builder
	channel Channel
	sink    tradelog.Sink
	logger  *logger.Logger

	ackTimeout   time.Duration
	pollInterval time.Duration
	dryRun       bool
	now          func() time.Time
}

// PlacerOption configures a Placer
type PlacerOption func(*Placer)

// WithAckTimeout bounds how long Place waits for the first order's status
func WithAckTimeout(d time.Duration) PlacerOption {
	return func(p *Placer) { p.ackTimeout = d }
}

// WithPollInterval sets the status polling period
func WithPollInterval(d time.Duration) PlacerOption {
	return func(p *Placer) { p.pollInterval = d }
}

// WithDryRun marks trade log records as dry-run
func WithDryRun(dryRun bool) PlacerOption {
	return func(p *Placer) { p.dryRun = dryRun }
}

// WithClock overrides the record timestamp source
func WithClock(now func() time.Time) PlacerOption {
	return func(p *Placer) { p.now = now }
}

// NewPlacer creates a placer. sink may be nil.
func NewPlacer(builder *order.Builder, channel Channel, sink tradelog.Sink, log *logger.Logger, opts ...PlacerOption) *Placer {
	p := &Placer{
		builder:      builder,
		channel:      channel,
		sink:         sink,
		logger:       log.WithField("component", "placer"),
		ackTimeout:   5 * time.Second,
		pollInterval: 250 * time.Millisecond,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Placement is the result of a successful submission
type Placement struct {
	Symbol       string         `json:"symbol"`
	Orders       order.Group    `json:"orders"`
	Handles      []Handle       `json:"handles"`
	Legs         []tradelog.Leg `json:"legs"`
	Acknowledged bool           `json:"acknowledged"`
	DryRun       bool           `json:"dry_run"`
}

// Place validates and builds intent for inst, submits every order in group
// order and waits up to the ack timeout for the first order's status.
// Validation failures come back as *order.ValidationError and submit
// nothing; broker failures come back as *ChannelError.
func (p *Placer) Place(ctx context.Context, inst order.Instrument, intent order.Intent) (*Placement, error) {
	intent.Instrument = inst
	group, err := p.builder.Build(intent)
	if err != nil {
		return nil, err
	}

	rec := tradelog.Record{
		Timestamp:  p.now().UTC(),
		Symbol:     gateway.PairSymbol(inst),
		Instrument: inst,
		Intent:     intent.Normalize(),
		DryRun:     p.dryRun,
	}

	handles := make([]Handle, 0, len(group))
	for _, o := range group {
		h, err := p.channel.Submit(ctx, inst, o)
		if err != nil {
			rec.Error = err.Error()
			p.record(ctx, rec)
			return nil, err
		}
		handles = append(handles, h)
	}

	placement := &Placement{
		Symbol:  rec.Symbol,
		Orders:  group,
		Handles: handles,
		DryRun:  p.dryRun,
	}

	first, acked := p.awaitAck(ctx, handles[0])
	placement.Acknowledged = acked

	placement.Legs = make([]tradelog.Leg, len(group))
	for i, o := range group {
		st := first
		if i > 0 {
			st = p.queryQuietly(ctx, handles[i])
		}
		placement.Legs[i] = tradelog.Leg{
			Role:         o.Role,
			Ref:          o.Ref,
			OrderID:      firstNonEmpty(st.OrderID, handles[i].OrderID),
			Status:       st.Status,
			Filled:       st.Filled,
			Remaining:    st.Remaining,
			AvgFillPrice: st.AvgFillPrice,
		}
	}

	rec.Legs = placement.Legs
	p.record(ctx, rec)

	p.logger.WithFields(map[string]interface{}{
		"symbol":       rec.Symbol,
		"orders":       len(group),
		"status":       rec.Status(),
		"acknowledged": acked,
		"dry_run":      p.dryRun,
	}).Info("Order placement completed")

	return placement, nil
}

// awaitAck polls the order until the broker reports a status or the ack
// timeout elapses
func (p *Placer) awaitAck(ctx context.Context, h Handle) (Status, bool) {
	if st := p.queryQuietly(ctx, h); st.Acknowledged() {
		return st, true
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(p.ackTimeout)
	defer timeout.Stop()

	last := Status{OrderID: h.OrderID}
	for {
		select {
		case <-ctx.Done():
			return last, false
		case <-timeout.C:
			p.logger.WithField("ref", h.Ref).Warn("Order not acknowledged before timeout")
			return last, false
		case <-ticker.C:
			last = p.queryQuietly(ctx, h)
			if last.Acknowledged() {
				return last, true
			}
		}
	}
}

func (p *Placer) queryQuietly(ctx context.Context, h Handle) Status {
	st, err := p.channel.QueryStatus(ctx, h)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"ref":   h.Ref,
			"error": err.Error(),
		}).Warn("Failed to get order status")
	}
	return st
}

// record appends to the trade log. Failures never fail the placement.
func (p *Placer) record(ctx context.Context, rec tradelog.Record) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Append(ctx, rec); err != nil {
		p.logger.WithError(err).Warn("Failed to append trade log record")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
