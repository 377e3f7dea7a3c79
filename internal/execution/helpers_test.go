package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/gateway/gatewaytest"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/internal/tradelog"
	"github.com/wonny/ibdash/pkg/logger"
)

type memSink struct {
	mu      sync.Mutex
	records []tradelog.Record
	err     error
}

func (s *memSink) Append(_ context.Context, rec tradelog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *memSink) all() []tradelog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tradelog.Record(nil), s.records...)
}

func eurusd() order.Instrument {
	return gateway.InstrumentFor("EURUSD")
}

func bracketIntent() order.Intent {
	return order.Intent{
		Instrument: eurusd(),
		Side:       order.SideBuy,
		Size:       1,
		Kind:       order.KindLimit,
		LimitPrice: order.Float(1.2),
		TIF:        order.TIFDay,
		Bracket:    &order.BracketSpec{TakeProfit: order.Float(1.21), StopLoss: order.Float(1.195)},
	}
}

func newGatewayPlacer(srv *gatewaytest.Server, sink tradelog.Sink, opts ...PlacerOption) (*Placer, *GatewayChannel) {
	ch := NewGatewayChannel(srv.Client(), logger.Nop())
	opts = append([]PlacerOption{WithAckTimeout(time.Second), WithPollInterval(10 * time.Millisecond)}, opts...)
	return NewPlacer(order.NewBuilder(nil), ch, sink, logger.Nop(), opts...), ch
}

var errSinkDown = errors.New("trade log unavailable")
