package riskctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/ibdash/pkg/logger"
)

// Strategy flags and tips shown on the dashboard
const (
	FlagHedgeOnly      = "In hedge-only zone"
	FlagStructureBreak = "Watch for structure break before confirming bias"

	TipHedgeOnly = "You're in a hedge-only zone. Monitor for invalidation or hedge reaction."
	TipAllClear  = "No major risk flags. Continue monitoring structure + bias alignment."
)

// AccountView is what the context needs from the account
type AccountView interface {
	ExposureByAsset(ctx context.Context) map[string]float64
	DrawdownPercent(ctx context.Context) float64
}

// PairContext is the risk summary for one pair
type PairContext struct {
	Pair          string   `json:"pair"`
	Drawdown      float64  `json:"drawdown"`
	Exposure      float64  `json:"exposure"`
	HedgeOnly     bool     `json:"hedge_only"`
	TopdownRefs   []string `json:"topdown_refs"`
	StrategyFlags []string `json:"strategy_flags"`
	AssistantTip  string   `json:"assistant_tip"`
}

// Service assembles pair contexts
type Service struct {
	account  AccountView
	graph    GraphSource
	alertPct float64
	logger   *logger.Logger
}

// NewService creates a service. Drawdowns above alertPct produce an alert tip.
func NewService(account AccountView, graph GraphSource, alertPct float64, log *logger.Logger) *Service {
	return &Service{
		account:  account,
		graph:    graph,
		alertPct: alertPct,
		logger:   log.WithField("component", "riskctx"),
	}
}

// PairContext builds the context for pair. A graph that cannot be loaded is
// treated as empty.
func (s *Service) PairContext(ctx context.Context, pair string) PairContext {
	pair = strings.ToUpper(strings.TrimSpace(pair))

	pc := PairContext{
		Pair:          pair,
		Drawdown:      s.account.DrawdownPercent(ctx),
		Exposure:      s.account.ExposureByAsset(ctx)[pair],
		TopdownRefs:   []string{},
		StrategyFlags: []string{},
	}

	var g Graph
	if s.graph != nil {
		loaded, err := s.graph.Graph(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load strategy graph")
		} else {
			g = loaded
		}
	}

	applyGraph(&pc, g)
	pc.AssistantTip = s.tip(pc)
	return pc
}

func applyGraph(pc *PairContext, g Graph) {
	pairLower := strings.ToLower(pc.Pair)

	for _, c := range g.Concepts {
		name := strings.ToLower(c.Name)
		desc := strings.ToLower(c.Description)
		if strings.Contains(name, "hedge-only") && strings.Contains(desc, pairLower) {
			pc.HedgeOnly = true
			pc.StrategyFlags = append(pc.StrategyFlags, FlagHedgeOnly)
		}
		if strings.Contains(name, "bias") && strings.Contains(desc, "structure") {
			pc.StrategyFlags = append(pc.StrategyFlags, FlagStructureBreak)
		}
	}

	for _, e := range g.Edges {
		if strings.Contains(strings.ToUpper(e.To), pc.Pair) {
			pc.TopdownRefs = append(pc.TopdownRefs, e.To)
		}
	}
}

func (s *Service) tip(pc PairContext) string {
	switch {
	case pc.Drawdown > s.alertPct:
		return fmt.Sprintf("Drawdown above %g%%: consider a hedge or DCT response.", s.alertPct)
	case pc.HedgeOnly:
		return TipHedgeOnly
	default:
		return TipAllClear
	}
}
