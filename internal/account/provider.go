package account

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/hwm"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/logger"
)

// Source is the part of the gateway the provider reads
type Source interface {
	AllPositions(ctx context.Context) ([]gateway.Position, error)
	Summary(ctx context.Context) (gateway.Summary, error)
}

// Sample values served when the gateway is unreachable and mock fallback is on
var (
	mockExposure = map[string]float64{
		"EURUSD": 1.5,
		"GBPUSD": 0.8,
		"USDJPY": 2.2,
		"AUDUSD": 1.0,
	}
	mockDrawdown = 3.5
)

// Snapshot is the account view used by the dashboard and risk context
type Snapshot struct {
	Exposure       map[string]float64 `json:"exposure"`
	DrawdownPct    float64            `json:"drawdown_pct"`
	NetLiquidation float64            `json:"net_liquidation"`
	HighWaterMark  float64            `json:"high_water_mark"`
	Fallback       bool               `json:"fallback"`
}

// Provider derives exposure and drawdown from the gateway. Read methods
// never fail: gateway errors are logged and answered with fallback values.
type Provider struct {
	source       Source
	store        hwm.Store
	policy       order.UnitPolicy
	mockFallback bool
	logger       *logger.Logger
}

// NewProvider creates a provider. policy defaults to DefaultLotPolicy.
func NewProvider(source Source, store hwm.Store, policy order.UnitPolicy, mockFallback bool, log *logger.Logger) *Provider {
	if policy == nil {
		policy = order.DefaultLotPolicy()
	}
	return &Provider{
		source:       source,
		store:        store,
		policy:       policy,
		mockFallback: mockFallback,
		logger:       log.WithField("component", "account"),
	}
}

// ExposureByAsset returns absolute position size per symbol, in lots for
// currency pairs and units for everything else
func (p *Provider) ExposureByAsset(ctx context.Context) map[string]float64 {
	exposure, err := p.exposure(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to load positions, using fallback exposure")
		return p.fallbackExposure()
	}
	return exposure
}

// DrawdownPercent returns the decline of net liquidation from its
// high-water mark, in percent rounded to 2 decimal places
func (p *Provider) DrawdownPercent(ctx context.Context) float64 {
	nlv, mark, err := p.Ratchet(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to compute drawdown, using fallback")
		return p.fallbackDrawdown()
	}
	return Drawdown(nlv, mark)
}

// Snapshot returns exposure and drawdown together
func (p *Provider) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{}

	exposure, err := p.exposure(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to load positions, using fallback exposure")
		exposure = p.fallbackExposure()
		snap.Fallback = true
	}
	snap.Exposure = exposure

	nlv, mark, err := p.Ratchet(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to compute drawdown, using fallback")
		snap.DrawdownPct = p.fallbackDrawdown()
		snap.Fallback = true
		return snap
	}
	snap.NetLiquidation = nlv
	snap.HighWaterMark = mark
	snap.DrawdownPct = Drawdown(nlv, mark)
	return snap
}

// Ratchet reads net liquidation, raises the high-water mark when it is
// exceeded and returns both
func (p *Provider) Ratchet(ctx context.Context) (nlv, mark float64, err error) {
	summary, err := p.source.Summary(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load account summary: %w", err)
	}
	nlv, ok := summary.NetLiquidation()
	if !ok {
		return 0, 0, fmt.Errorf("account summary has no net liquidation")
	}

	mark, err = p.store.WriteIfHigher(ctx, nlv)
	if err != nil {
		return nlv, 0, err
	}
	return nlv, mark, nil
}

func (p *Provider) exposure(ctx context.Context) (map[string]float64, error) {
	positions, err := p.source.AllPositions(ctx)
	if err != nil {
		return nil, err
	}

	exposure := make(map[string]float64)
	for _, pos := range positions {
		size := math.Abs(pos.Position.Float())
		if size == 0 {
			continue
		}
		inst := order.Instrument{Symbol: pos.Symbol(), SecType: pos.AssetClass}
		exposure[inst.Symbol] = decimal.NewFromFloat(exposure[inst.Symbol]).
			Add(decimal.NewFromFloat(p.policy.Lots(inst, size))).
			Round(2).
			InexactFloat64()
	}
	return exposure, nil
}

func (p *Provider) fallbackExposure() map[string]float64 {
	out := make(map[string]float64)
	if !p.mockFallback {
		return out
	}
	for k, v := range mockExposure {
		out[k] = v
	}
	return out
}

func (p *Provider) fallbackDrawdown() float64 {
	if p.mockFallback {
		return mockDrawdown
	}
	return 0
}

// Drawdown returns (mark - nlv) / mark * 100 rounded to 2 decimal places,
// or 0 without a positive mark
func Drawdown(nlv, mark float64) float64 {
	if mark <= 0 {
		return 0
	}
	hwm := decimal.NewFromFloat(mark)
	return hwm.Sub(decimal.NewFromFloat(nlv)).
		Div(hwm).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}
