package riskctx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/ibdash/pkg/logger"
)

type stubAccount struct {
	exposure map[string]float64
	drawdown float64
}

func (a stubAccount) ExposureByAsset(context.Context) map[string]float64 { return a.exposure }
func (a stubAccount) DrawdownPercent(context.Context) float64            { return a.drawdown }

type brokenGraph struct{}

func (brokenGraph) Graph(context.Context) (Graph, error) {
	return Graph{}, errors.New("graph directory not found")
}

func sampleGraph() StaticGraph {
	return StaticGraph{
		Concepts: []Concept{
			{Name: "Hedge-Only Zone", Description: "EURUSD and GBPUSD trade hedge-only below weekly support"},
			{Name: "Daily Bias", Description: "Confirm bias with market structure"},
			{Name: "Session Timing", Description: "London open liquidity sweep"},
		},
		Edges: []Edge{
			{From: "Weekly Bias", To: "EURUSD Daily"},
			{From: "Weekly Bias", To: "USDJPY Daily"},
			{From: "Daily Bias", To: "eurusd H4"},
		},
	}
}

func TestPairContext(t *testing.T) {
	account := stubAccount{exposure: map[string]float64{"EURUSD": 1.5, "USDJPY": 2.2}, drawdown: 1.2}

	tests := []struct {
		name      string
		pair      string
		account   stubAccount
		graph     GraphSource
		hedgeOnly bool
		flags     []string
		refs      []string
		exposure  float64
		tip       string
	}{
		{
			name:      "hedge-only pair",
			pair:      "eurusd",
			account:   account,
			graph:     sampleGraph(),
			hedgeOnly: true,
			flags:     []string{FlagHedgeOnly, FlagStructureBreak},
			refs:      []string{"EURUSD Daily", "eurusd H4"},
			exposure:  1.5,
			tip:       TipHedgeOnly,
		},
		{
			name:     "clear pair",
			pair:     "USDJPY",
			account:  account,
			graph:    sampleGraph(),
			flags:    []string{FlagStructureBreak},
			refs:     []string{"USDJPY Daily"},
			exposure: 2.2,
			tip:      TipAllClear,
		},
		{
			name:      "drawdown alert wins over hedge-only",
			pair:      "EURUSD",
			account:   stubAccount{exposure: account.exposure, drawdown: 3.5},
			graph:     sampleGraph(),
			hedgeOnly: true,
			flags:     []string{FlagHedgeOnly, FlagStructureBreak},
			refs:      []string{"EURUSD Daily", "eurusd H4"},
			exposure:  1.5,
			tip:       "Drawdown above 3%: consider a hedge or DCT response.",
		},
		{
			name:     "drawdown at the threshold is not an alert",
			pair:     "AUDUSD",
			account:  stubAccount{drawdown: 3},
			graph:    sampleGraph(),
			flags:    []string{FlagStructureBreak},
			refs:     []string{},
			exposure: 0,
			tip:      TipAllClear,
		},
		{
			name:     "graph failure is an empty graph",
			pair:     "EURUSD",
			account:  account,
			graph:    brokenGraph{},
			flags:    []string{},
			refs:     []string{},
			exposure: 1.5,
			tip:      TipAllClear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.account, tt.graph, 3, logger.Nop())
			pc := svc.PairContext(context.Background(), tt.pair)

			assert.Equal(t, tt.hedgeOnly, pc.HedgeOnly)
			assert.Equal(t, tt.flags, pc.StrategyFlags)
			assert.Equal(t, tt.refs, pc.TopdownRefs)
			assert.Equal(t, tt.exposure, pc.Exposure)
			assert.Equal(t, tt.tip, pc.AssistantTip)
			assert.Equal(t, tt.account.drawdown, pc.Drawdown)
		})
	}
}

func TestPairContext_NilGraph(t *testing.T) {
	svc := NewService(stubAccount{}, nil, 3, logger.Nop())
	pc := svc.PairContext(context.Background(), " gbpusd ")

	assert.Equal(t, "GBPUSD", pc.Pair)
	assert.NotNil(t, pc.StrategyFlags)
	assert.NotNil(t, pc.TopdownRefs)
	assert.Equal(t, TipAllClear, pc.AssistantTip)
}
