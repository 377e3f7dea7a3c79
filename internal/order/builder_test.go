package order

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqRefs() BuilderOption {
	n := 0
	return WithRefGenerator(func() string {
		n++
		return fmt.Sprintf("ref-%d", n)
	})
}

func eurusd() Instrument {
	return Instrument{Symbol: "EUR", SecType: SecTypeCash, Currency: "USD", Exchange: "IDEALPRO"}
}

func TestBuild_EURUSDBracket(t *testing.T) {
	b := NewBuilder(nil, seqRefs())

	g, err := b.Build(Intent{
		Instrument: eurusd(),
		Side:       SideBuy,
		Size:       1,
		Kind:       KindLimit,
		LimitPrice: Float(1.2000),
		TIF:        TIFDay,
		Bracket:    &BracketSpec{TakeProfit: Float(1.2100), StopLoss: Float(1.1950)},
	})
	require.NoError(t, err)
	require.Len(t, g, 3)
	assert.True(t, g.IsBracket())

	entry, tp, sl := g[0], g[1], g[2]

	assert.Equal(t, RoleEntry, entry.Role)
	assert.Equal(t, SideBuy, entry.Action)
	assert.Equal(t, KindLimit, entry.Kind)
	assert.Equal(t, 100000.0, entry.Quantity)
	require.NotNil(t, entry.LimitPrice)
	assert.Equal(t, 1.2000, *entry.LimitPrice)
	assert.False(t, entry.Transmit)
	assert.False(t, entry.IsChild())

	assert.Equal(t, RoleTakeProfit, tp.Role)
	assert.Equal(t, SideSell, tp.Action)
	assert.Equal(t, KindLimit, tp.Kind)
	assert.Equal(t, 100000.0, tp.Quantity)
	require.NotNil(t, tp.LimitPrice)
	assert.Equal(t, 1.2100, *tp.LimitPrice)
	assert.Equal(t, entry.Ref, tp.ParentRef)
	assert.False(t, tp.Transmit)

	assert.Equal(t, RoleStopLoss, sl.Role)
	assert.Equal(t, SideSell, sl.Action)
	assert.Equal(t, KindStop, sl.Kind)
	assert.Equal(t, 100000.0, sl.Quantity)
	require.NotNil(t, sl.AuxPrice)
	assert.Equal(t, 1.1950, *sl.AuxPrice)
	assert.Equal(t, entry.Ref, sl.ParentRef)
	assert.True(t, sl.Transmit)
}

func TestBuild_Standalone(t *testing.T) {
	b := NewBuilder(nil, seqRefs())

	tests := []struct {
		name   string
		intent Intent
		check  func(t *testing.T, o Order)
	}{
		{
			name:   "market",
			intent: Intent{Instrument: eurusd(), Side: SideSell, Size: 2, Kind: KindMarket, TIF: TIFGTC},
			check: func(t *testing.T, o Order) {
				assert.Nil(t, o.LimitPrice)
				assert.Nil(t, o.AuxPrice)
				assert.Equal(t, TIFGTC, o.TIF)
			},
		},
		{
			name: "stop limit",
			intent: Intent{Instrument: eurusd(), Side: SideBuy, Size: 1, Kind: KindStopLimit,
				LimitPrice: Float(1.21), StopPrice: Float(1.205), TIF: TIFDay},
			check: func(t *testing.T, o Order) {
				assert.Equal(t, 1.21, *o.LimitPrice)
				assert.Equal(t, 1.205, *o.AuxPrice)
			},
		},
		{
			name: "trail by amount",
			intent: Intent{Instrument: eurusd(), Side: SideSell, Size: 1, Kind: KindTrail,
				TrailingAmount: Float(0.002), TIF: TIFDay},
			check: func(t *testing.T, o Order) {
				assert.Equal(t, 0.002, *o.AuxPrice)
				assert.Nil(t, o.TrailingPercent)
			},
		},
		{
			name: "trail by percent",
			intent: Intent{Instrument: eurusd(), Side: SideSell, Size: 1, Kind: KindTrail,
				TrailingPercent: Float(0.5), TIF: TIFDay},
			check: func(t *testing.T, o Order) {
				assert.Nil(t, o.AuxPrice)
				assert.Equal(t, 0.5, *o.TrailingPercent)
			},
		},
		{
			name: "trail limit prefers amount",
			intent: Intent{Instrument: eurusd(), Side: SideSell, Size: 1, Kind: KindTrailLimit,
				TrailingAmount: Float(0.002), TrailingPercent: Float(0.5), LimitPrice: Float(1.19), TIF: TIFDay},
			check: func(t *testing.T, o Order) {
				assert.Equal(t, 0.002, *o.AuxPrice)
				assert.Nil(t, o.TrailingPercent)
				assert.Equal(t, 1.19, *o.LimitPrice)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := b.Build(tt.intent)
			require.NoError(t, err)
			require.Len(t, g, 1)

			o := g.Entry()
			assert.Equal(t, RoleStandalone, o.Role)
			assert.True(t, o.Transmit)
			assert.Empty(t, o.ParentRef)
			assert.NotEmpty(t, o.Ref)
			assert.Equal(t, tt.intent.Side, o.Action)
			tt.check(t, o)
		})
	}
}

func TestBuild_Quantity(t *testing.T) {
	b := NewBuilder(nil)

	tests := []struct {
		name string
		inst Instrument
		size float64
		want float64
	}{
		{"fx lots", eurusd(), 1.5, 150000},
		{"fx mini", eurusd(), 0.1, 10000},
		{"stock shares", Instrument{Symbol: "AAPL", SecType: SecTypeStock, Currency: "USD", Exchange: "SMART"}, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := b.Build(Intent{Instrument: tt.inst, Side: SideBuy, Size: tt.size, Kind: KindMarket, TIF: TIFDay})
			require.NoError(t, err)
			assert.Equal(t, tt.want, g[0].Quantity)
		})
	}
}

func TestBuild_CustomPolicy(t *testing.T) {
	b := NewBuilder(LotPolicy{LotSize: 1000, SecTypes: []string{SecTypeCash}})

	g, err := b.Build(Intent{Instrument: eurusd(), Side: SideBuy, Size: 3, Kind: KindMarket, TIF: TIFDay})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, g[0].Quantity)
}

func TestBuild_BracketTransmitOrdering(t *testing.T) {
	b := NewBuilder(nil)

	for _, side := range []Side{SideBuy, SideSell} {
		t.Run(string(side), func(t *testing.T) {
			g, err := b.Build(Intent{
				Instrument: eurusd(),
				Side:       side,
				Size:       1,
				Kind:       KindMarket,
				TIF:        TIFGTC,
				Bracket:    &BracketSpec{TakeProfit: Float(1.3), StopLoss: Float(1.1)},
			})
			require.NoError(t, err)
			require.Len(t, g, 3)

			for i, o := range g {
				assert.Equal(t, i == len(g)-1, o.Transmit, "leg %d", i)
				assert.Equal(t, TIFGTC, o.TIF)
			}
			for _, child := range g[1:] {
				assert.Equal(t, side.Reverse(), child.Action)
				assert.Equal(t, g[0].Ref, child.ParentRef)
				assert.Equal(t, g[0].Quantity, child.Quantity)
			}
			assert.NotEqual(t, g[0].Ref, g[1].Ref)
			assert.NotEqual(t, g[1].Ref, g[2].Ref)
		})
	}
}

func TestBuild_BracketTrailingStop(t *testing.T) {
	b := NewBuilder(nil)

	g, err := b.Build(Intent{
		Instrument: eurusd(),
		Side:       SideSell,
		Size:       1,
		Kind:       KindMarket,
		TIF:        TIFDay,
		Bracket:    &BracketSpec{TakeProfit: Float(1.18), StopLoss: Float(1.21), TrailingStop: Float(0.003)},
	})
	require.NoError(t, err)

	sl := g[2]
	assert.Equal(t, KindTrail, sl.Kind)
	assert.Equal(t, 0.003, *sl.AuxPrice)
	assert.Nil(t, sl.TrailingPercent)
	assert.Equal(t, SideBuy, sl.Action)
	assert.True(t, sl.Transmit)
}

func TestBuild_NonPositiveTrailingStopFallsBackToStop(t *testing.T) {
	b := NewBuilder(nil)

	for _, ts := range []float64{0, -0.002} {
		g, err := b.Build(Intent{
			Instrument: eurusd(),
			Side:       SideBuy,
			Size:       1,
			Kind:       KindMarket,
			TIF:        TIFDay,
			Bracket:    &BracketSpec{TakeProfit: Float(1.21), StopLoss: Float(1.19), TrailingStop: Float(ts)},
		})
		require.NoError(t, err)

		sl := g[2]
		assert.Equal(t, KindStop, sl.Kind)
		require.NotNil(t, sl.AuxPrice)
		assert.Equal(t, 1.19, *sl.AuxPrice)
	}
}

func TestBuild_TrailLimitWithoutPrices(t *testing.T) {
	g, err := NewBuilder(nil).Build(Intent{
		Instrument: eurusd(),
		Side:       SideBuy,
		Size:       1,
		Kind:       KindTrailLimit,
		TIF:        TIFDay,
	})
	require.NoError(t, err)
	require.Len(t, g, 1)
	assert.Equal(t, KindTrailLimit, g[0].Kind)
	assert.Nil(t, g[0].LimitPrice)
	assert.Nil(t, g[0].AuxPrice)
	assert.Nil(t, g[0].TrailingPercent)
}

func TestBuild_RejectsNonFiniteSize(t *testing.T) {
	b := NewBuilder(nil)
	for _, size := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		in := Intent{Instrument: eurusd(), Side: SideBuy, Size: size, Kind: KindMarket, TIF: TIFDay}
		assert.NotPanics(t, func() {
			_, err := b.Build(in)
			assert.Equal(t, CodeInvalidSize, CodeOf(err))
		})
	}
}

func TestBuild_RejectsInvalidIntent(t *testing.T) {
	b := NewBuilder(nil)

	g, err := b.Build(Intent{Instrument: eurusd(), Side: SideBuy, Size: 1, Kind: KindTrail, TIF: TIFDay})
	require.Error(t, err)
	assert.Nil(t, g)
	assert.True(t, IsValidation(err))
	assert.Equal(t, CodeMissingTrailingParameter, CodeOf(err))
}

func TestBuild_DoesNotAliasIntentPrices(t *testing.T) {
	b := NewBuilder(nil)
	price := 1.2
	in := Intent{Instrument: eurusd(), Side: SideBuy, Size: 1, Kind: KindLimit, LimitPrice: &price, TIF: TIFDay}

	g, err := b.Build(in)
	require.NoError(t, err)

	price = 9.9
	assert.Equal(t, 1.2, *g[0].LimitPrice)
}

func TestMustBuild_PanicsOnInvalid(t *testing.T) {
	b := NewBuilder(nil)

	assert.Panics(t, func() {
		b.MustBuild(Intent{Instrument: eurusd(), Side: "HOLD", Size: 1, Kind: KindMarket, TIF: TIFDay})
	})
	assert.NotPanics(t, func() {
		b.MustBuild(Intent{Instrument: eurusd(), Side: SideBuy, Size: 1, Kind: KindMarket, TIF: TIFDay})
	})
}

func TestLotPolicy_Lots(t *testing.T) {
	p := DefaultLotPolicy()

	assert.Equal(t, 1.5, p.Lots(eurusd(), 150000))
	assert.Equal(t, 0.33, p.Lots(eurusd(), 33333))
	assert.Equal(t, 25.0, p.Lots(Instrument{Symbol: "AAPL", SecType: SecTypeStock}, 25))
	assert.Equal(t, 2.0, p.Units(Instrument{Symbol: "AAPL", SecType: "stk"}, 2))
}
