package order

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseIntent() Intent {
	return Intent{
		Instrument: Instrument{Symbol: "EUR", SecType: SecTypeCash, Currency: "USD", Exchange: "IDEALPRO"},
		Side:       SideBuy,
		Size:       1,
		Kind:       KindMarket,
		TIF:        TIFDay,
	}
}

func TestValidate_AcceptsEveryKind(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Intent)
	}{
		{"market", func(in *Intent) {}},
		{"limit", func(in *Intent) {
			in.Kind = KindLimit
			in.LimitPrice = Float(1.2)
		}},
		{"stop", func(in *Intent) {
			in.Kind = KindStop
			in.StopPrice = Float(1.19)
		}},
		{"stop limit", func(in *Intent) {
			in.Kind = KindStopLimit
			in.LimitPrice = Float(1.2)
			in.StopPrice = Float(1.19)
		}},
		{"trail amount", func(in *Intent) {
			in.Kind = KindTrail
			in.TrailingAmount = Float(0.002)
		}},
		{"trail percent", func(in *Intent) {
			in.Kind = KindTrail
			in.TrailingPercent = Float(0.5)
		}},
		{"trail limit", func(in *Intent) {
			in.Kind = KindTrailLimit
		}},
		{"lowercase input", func(in *Intent) {
			in.Side = "sell"
			in.Kind = "lmt"
			in.LimitPrice = Float(1.2)
			in.TIF = "gtc"
		}},
		{"alias kind", func(in *Intent) {
			in.Kind = "stop limit"
			in.LimitPrice = Float(1.2)
			in.StopPrice = Float(1.19)
		}},
		{"bracket", func(in *Intent) {
			in.Bracket = &BracketSpec{TakeProfit: Float(1.21), StopLoss: Float(1.19)}
		}},
		{"every tif", func(in *Intent) {
			in.TIF = TIFGTD
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseIntent()
			tt.mutate(&in)
			assert.NoError(t, Validate(in))
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Intent)
		code   Code
	}{
		{"bad direction", func(in *Intent) { in.Side = "HOLD" }, CodeInvalidDirection},
		{"bad kind", func(in *Intent) { in.Kind = "MOC" }, CodeInvalidOrderKind},
		{"zero size", func(in *Intent) { in.Size = 0 }, CodeInvalidSize},
		{"negative size", func(in *Intent) { in.Size = -1 }, CodeInvalidSize},
		{"infinite size", func(in *Intent) { in.Size = math.Inf(1) }, CodeInvalidSize},
		{"NaN size", func(in *Intent) { in.Size = math.NaN() }, CodeInvalidSize},
		{"limit without price", func(in *Intent) { in.Kind = KindLimit }, CodeMissingLimitPrice},
		{"stop limit without limit", func(in *Intent) {
			in.Kind = KindStopLimit
			in.StopPrice = Float(1.19)
		}, CodeMissingLimitPrice},
		{"stop without price", func(in *Intent) { in.Kind = KindStop }, CodeMissingStopPrice},
		{"stop limit without stop", func(in *Intent) {
			in.Kind = KindStopLimit
			in.LimitPrice = Float(1.2)
		}, CodeMissingStopPrice},
		{"trail without params", func(in *Intent) { in.Kind = KindTrail }, CodeMissingTrailingParameter},
		{"trail with both params", func(in *Intent) {
			in.Kind = KindTrail
			in.TrailingAmount = Float(0.002)
			in.TrailingPercent = Float(0.5)
		}, CodeConflictingTrailingParameters},
		{"bracket without stop loss", func(in *Intent) {
			in.Bracket = &BracketSpec{TakeProfit: Float(1.21)}
		}, CodeIncompleteBracketSpec},
		{"bracket without take profit", func(in *Intent) {
			in.Bracket = &BracketSpec{StopLoss: Float(1.19), TrailingStop: Float(0.002)}
		}, CodeIncompleteBracketSpec},
		{"bad tif", func(in *Intent) { in.TIF = "FOK" }, CodeInvalidTimeInForce},
		{"empty tif", func(in *Intent) { in.TIF = "" }, CodeInvalidTimeInForce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseIntent()
			tt.mutate(&in)

			err := Validate(in)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
			assert.NotEmpty(t, verr.Field)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	in := baseIntent()
	in.Side = "HOLD"
	in.Size = 0
	in.TIF = "FOK"

	assert.Equal(t, CodeInvalidDirection, CodeOf(Validate(in)))
}

func TestValidate_Idempotent(t *testing.T) {
	in := baseIntent()
	in.Kind = KindTrail

	first := Validate(in)
	second := Validate(in)
	assert.Equal(t, first, second)
	assert.Equal(t, CodeMissingTrailingParameter, CodeOf(first))

	in.TrailingPercent = Float(1)
	assert.NoError(t, Validate(in))
	assert.NoError(t, Validate(in))
}

func TestValidate_DoesNotMutateIntent(t *testing.T) {
	in := baseIntent()
	in.Side = "buy"

	_ = Validate(in)
	assert.Equal(t, Side("buy"), in.Side)
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"mkt":         KindMarket,
		"Limit":       KindLimit,
		"STP  LMT":    KindStopLimit,
		"trail limit": KindTrailLimit,
		"TRAIL":       KindTrail,
		"moc":         Kind("MOC"),
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseKind(input), input)
	}
}
