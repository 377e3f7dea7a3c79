package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ibdash/internal/order"
)

func changedSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestOrderFlagsIntent(t *testing.T) {
	tests := []struct {
		name    string
		flags   orderFlags
		changed []string
		check   func(t *testing.T, in order.Intent)
	}{
		{
			name:  "market order ignores unset prices",
			flags: orderFlags{symbol: "aapl", side: "sell", size: 10, kind: "market", tif: "day"},
			check: func(t *testing.T, in order.Intent) {
				assert.Equal(t, order.SideSell, in.Side)
				assert.Equal(t, order.KindMarket, in.Kind)
				assert.Equal(t, order.TIFDay, in.TIF)
				assert.Equal(t, order.SecTypeStock, in.Instrument.SecType)
				assert.Nil(t, in.LimitPrice)
				assert.Nil(t, in.Bracket)
			},
		},
		{
			name:    "limit bracket on a pair",
			flags:   orderFlags{symbol: "EURUSD", side: "BUY", size: 1, kind: "LMT", tif: "GTC", limit: 1.085, tp: 1.09, sl: 1.08},
			changed: []string{"limit", "tp", "sl"},
			check: func(t *testing.T, in order.Intent) {
				assert.Equal(t, order.SecTypeCash, in.Instrument.SecType)
				assert.Equal(t, "EUR", in.Instrument.Symbol)
				require.NotNil(t, in.LimitPrice)
				assert.Equal(t, 1.085, *in.LimitPrice)
				require.NotNil(t, in.Bracket)
				assert.Equal(t, 1.09, *in.Bracket.TakeProfit)
				assert.Equal(t, 1.08, *in.Bracket.StopLoss)
				assert.Nil(t, in.Bracket.TrailingStop)
			},
		},
		{
			name:    "explicit zero price is kept for validation",
			flags:   orderFlags{symbol: "EURUSD", side: "BUY", size: 1, kind: "LMT", tif: "DAY"},
			changed: []string{"limit"},
			check: func(t *testing.T, in order.Intent) {
				require.NotNil(t, in.LimitPrice)
				assert.Zero(t, *in.LimitPrice)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.flags.intent(changedSet(tt.changed...)))
		})
	}
}

func TestOrderPreviewCommand(t *testing.T) {
	t.Setenv("FX_LOT_SIZE", "100000")
	t.Setenv("ENV", "development")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"order", "preview",
		"--symbol", "EURUSD", "--side", "BUY", "--size", "2", "--type", "LMT",
		"--limit", "1.085", "--tp", "1.09", "--sl", "1.08"})
	require.NoError(t, rootCmd.Execute())

	var group []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &group))
	require.Len(t, group, 3)
	assert.Equal(t, "ENTRY", group[0]["role"])
	assert.Equal(t, 200000.0, group[0]["quantity"])
}
