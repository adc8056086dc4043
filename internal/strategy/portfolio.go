package strategy

import (
	"math"

	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
)

// Portfolio strategy ids. Each evaluates its own leg set.
const (
	CustomID      = "custom"
	SimulationAID = "simulationA"
	SimulationBID = "simulationB"
	SimulationCID = "simulationC"
)

// PortfolioIDs lists the portfolio strategies in display order.
var PortfolioIDs = []string{CustomID, SimulationAID, SimulationBID, SimulationCID}

type portfolioStrategy struct {
	info Info
	env  Env
}

func newPortfolio(id, name string, env Env) *portfolioStrategy {
	return &portfolioStrategy{
		info: Info{
			ID:          id,
			Group:       GroupPortfolio,
			Name:        name,
			Sentiment:   "mixed / multi-expiry",
			Description: "Mixed expiries with live theoretical P&L.",
			Details: Details{
				When:     "Monitoring an existing book",
				Features: []string{"Per-leg expiries", "T+0 theoretical P&L", "Live valuation"},
				Pros:     []string{"Reflects the actual position"},
				Cons:     []string{"Depends on the volatility input"},
			},
		},
		env: env,
	}
}

func (s *portfolioStrategy) Info() Info {
	return s.info
}

// Legs expands each leg into ceil(quantity) unit legs. A zero quantity
// counts as one.
func (s *portfolioStrategy) Legs(p Parameters) []models.Leg {
	out := make([]models.Leg, 0, len(p.Legs))
	for _, leg := range p.Legs {
		n := 1
		if leg.Quantity != 0 {
			n = int(math.Ceil(leg.Quantity))
		}
		unitLeg := leg
		unitLeg.Quantity = 1
		for i := 0; i < n; i++ {
			out = append(out, unitLeg)
		}
	}
	return out
}

// Calculate sweeps the leg set around the spot. Extrema and breakevens
// come from the sampled curve.
func (s *portfolioStrategy) Calculate(p Parameters, snap models.MarketSnapshot) models.StrategyResult {
	pnl := payoff.NewPnL(p.Legs, payoff.Options{
		Mode:          p.Mode,
		Snapshot:      snap,
		Calendar:      s.env.Calendar,
		Now:           p.Now,
		DefaultExpiry: p.DefaultExpiry,
	})
	sweep := payoff.Sweep(pnl, snap.Spot, s.env.Sweep)

	return models.StrategyResult{
		MaxProfitPoints: sweep.MaxProfit,
		MaxLossPoints:   sweep.MaxLoss,
		BreakEvens:      sweep.BreakEvens,
		Payoff:          pnl,
		EstimatedMargin: payoff.EstimateMargin(p.Legs, snap.Spot, s.env.Margin),
	}
}

func portfolios(env Env) []Definition {
	return []Definition{
		newPortfolio(CustomID, "Custom Portfolio", env),
		newPortfolio(SimulationAID, "Simulation A", env),
		newPortfolio(SimulationBID, "Simulation B", env),
		newPortfolio(SimulationCID, "Simulation C", env),
	}
}
