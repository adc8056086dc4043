package strategy

import (
	"math"

	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
)

// closedForm is a fixed structure whose extrema and breakevens are known
// analytically.
type closedForm struct {
	info Info
	legs func(p Parameters) []models.Leg
	calc func(p Parameters, spot float64) models.StrategyResult
}

func (c *closedForm) Info() Info {
	return c.info
}

func (c *closedForm) Legs(p Parameters) []models.Leg {
	return c.legs(p)
}

func (c *closedForm) Calculate(p Parameters, snap models.MarketSnapshot) models.StrategyResult {
	return c.calc(p, snap.Spot)
}

func unit(action models.Action, typ models.OptionType, strike, premium float64, expiry models.ExpiryRef) models.Leg {
	return models.Leg{Action: action, Type: typ, Strike: strike, Premium: premium, Quantity: 1, Expiry: expiry}
}

func callValue(price, k float64) float64 { return math.Max(0, price-k) }
func putValue(price, k float64) float64  { return math.Max(0, k-price) }

var inf = math.Inf(1)

func builtins(env Env) []Definition {
	m := env.Margin

	return []Definition{
		&closedForm{
			info: Info{
				ID: "longCall", Group: GroupSingle, Name: "Long Call", Sentiment: "strongly bullish",
				Description: "Loss limited to the premium, unlimited upside.",
				Inputs:      []InputField{{"strike", "Strike (call)", 32000}, {"premium", "Premium (call)", 350}},
				Details:     Details{When: "Expecting a sharp rally", Features: []string{"High leverage"}, Pros: []string{"Small stake, large payoff"}, Cons: []string{"Time decay"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{unit(models.Buy, models.Call, p.Value("strike"), p.Value("premium"), p.DefaultExpiry)}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k, prem := p.Value("strike"), p.Value("premium")
				return models.StrategyResult{
					MaxProfitPoints: inf,
					MaxLossPoints:   prem,
					BreakEvens:      []float64{k + prem},
					Payoff:          func(x float64) float64 { return callValue(x, k) - prem },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "longPut", Group: GroupSingle, Name: "Long Put", Sentiment: "strongly bearish",
				Description: "Loss limited to the premium, profit grows as the index falls.",
				Inputs:      []InputField{{"strike", "Strike (put)", 32000}, {"premium", "Premium (put)", 350}},
				Details:     Details{When: "Expecting a sharp drop", Features: []string{"Classic hedge"}, Pros: []string{"Limited loss"}, Cons: []string{"Needs a large move"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{unit(models.Buy, models.Put, p.Value("strike"), p.Value("premium"), p.DefaultExpiry)}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k, prem := p.Value("strike"), p.Value("premium")
				return models.StrategyResult{
					MaxProfitPoints: k - prem,
					MaxLossPoints:   prem,
					BreakEvens:      []float64{k - prem},
					Payoff:          func(x float64) float64 { return putValue(x, k) - prem },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "shortCall", Group: GroupSingle, Name: "Short Call", Sentiment: "bearish / capped",
				Description: "Collect premium as the seller. Unlimited risk, watch the margin.",
				Inputs:      []InputField{{"strike", "Strike (call)", 32000}, {"premium", "Premium (call)", 350}},
				Details:     Details{When: "Bearish or range bound", Features: []string{"Harvests time value"}, Pros: []string{"High win rate"}, Cons: []string{"Unlimited risk"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{unit(models.Sell, models.Call, p.Value("strike"), p.Value("premium"), p.DefaultExpiry)}
			},
			calc: func(p Parameters, spot float64) models.StrategyResult {
				k, prem := p.Value("strike"), p.Value("premium")
				return models.StrategyResult{
					MaxProfitPoints: prem,
					MaxLossPoints:   inf,
					BreakEvens:      []float64{k + prem},
					Payoff:          func(x float64) float64 { return prem - callValue(x, k) },
					EstimatedMargin: payoff.ShortLegMargin(models.Call, k, prem, spot, m),
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "shortPut", Group: GroupSingle, Name: "Short Put", Sentiment: "bullish / floored",
				Description: "Collect premium as the seller. Heavy losses in a crash.",
				Inputs:      []InputField{{"strike", "Strike (put)", 32000}, {"premium", "Premium (put)", 350}},
				Details:     Details{When: "Bullish or range bound", Features: []string{"Paid to wait for a lower entry"}, Pros: []string{"High win rate"}, Cons: []string{"Catching a falling knife"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{unit(models.Sell, models.Put, p.Value("strike"), p.Value("premium"), p.DefaultExpiry)}
			},
			calc: func(p Parameters, spot float64) models.StrategyResult {
				k, prem := p.Value("strike"), p.Value("premium")
				return models.StrategyResult{
					MaxProfitPoints: prem,
					MaxLossPoints:   k - prem,
					BreakEvens:      []float64{k - prem},
					Payoff:          func(x float64) float64 { return prem - putValue(x, k) },
					EstimatedMargin: payoff.ShortLegMargin(models.Put, k, prem, spot, m),
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "bullCallSpread", Group: GroupVertical, Name: "Bull Call Spread", Sentiment: "moderately bullish (debit)",
				Description: "Buy the lower call, sell the higher call.",
				Inputs: []InputField{
					{"lowerStrike", "Buy lower strike (call)", 31800}, {"lowerPremium", "Buy premium (call)", 200},
					{"higherStrike", "Sell higher strike (call)", 32200}, {"higherPremium", "Sell premium (call)", 80},
				},
				Details: Details{When: "Moderately bullish", Features: []string{"Cheaper than a naked call"}, Pros: []string{"Limited risk"}, Cons: []string{"Capped profit"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Call, p.Value("lowerStrike"), p.Value("lowerPremium"), p.DefaultExpiry),
					unit(models.Sell, models.Call, p.Value("higherStrike"), p.Value("higherPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("lowerStrike"), p.Value("lowerPremium")
				k2, p2 := p.Value("higherStrike"), p.Value("higherPremium")
				debit := p1 - p2
				return models.StrategyResult{
					MaxProfitPoints: k2 - k1 - debit,
					MaxLossPoints:   debit,
					BreakEvens:      []float64{k1 + debit},
					Payoff:          func(x float64) float64 { return callValue(x, k1) - callValue(x, k2) - debit },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "bullPutSpread", Group: GroupVertical, Name: "Bull Put Spread", Sentiment: "moderately bullish (credit)",
				Description: "Sell the higher put, buy the lower put.",
				Inputs: []InputField{
					{"lowerStrike", "Buy lower strike (put)", 31800}, {"lowerPremium", "Buy premium (put)", 200},
					{"higherStrike", "Sell higher strike (put)", 32200}, {"higherPremium", "Sell premium (put)", 80},
				},
				Details: Details{When: "Moderately bullish", Features: []string{"Collects premium with protection"}, Pros: []string{"High win rate"}, Cons: []string{"Poor payoff ratio"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Put, p.Value("lowerStrike"), p.Value("lowerPremium"), p.DefaultExpiry),
					unit(models.Sell, models.Put, p.Value("higherStrike"), p.Value("higherPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("lowerStrike"), p.Value("lowerPremium")
				k2, p2 := p.Value("higherStrike"), p.Value("higherPremium")
				credit := p2 - p1
				return models.StrategyResult{
					MaxProfitPoints: credit,
					MaxLossPoints:   k2 - k1 - credit,
					BreakEvens:      []float64{k2 - credit},
					Payoff:          func(x float64) float64 { return putValue(x, k1) - putValue(x, k2) + credit },
					EstimatedMargin: payoff.SpreadMargin(k2-k1, m),
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "bearCallSpread", Group: GroupVertical, Name: "Bear Call Spread", Sentiment: "moderately bearish (credit)",
				Description: "Sell the lower call, buy the higher call.",
				Inputs: []InputField{
					{"lowerStrike", "Sell lower strike (call)", 31800}, {"lowerPremium", "Sell premium (call)", 200},
					{"higherStrike", "Buy higher strike (call)", 32200}, {"higherPremium", "Buy premium (call)", 80},
				},
				Details: Details{When: "Moderately bearish", Features: []string{"Collects premium with protection"}, Pros: []string{"High win rate"}, Cons: []string{"Poor payoff ratio"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Sell, models.Call, p.Value("lowerStrike"), p.Value("lowerPremium"), p.DefaultExpiry),
					unit(models.Buy, models.Call, p.Value("higherStrike"), p.Value("higherPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("lowerStrike"), p.Value("lowerPremium")
				k2, p2 := p.Value("higherStrike"), p.Value("higherPremium")
				credit := p1 - p2
				return models.StrategyResult{
					MaxProfitPoints: credit,
					MaxLossPoints:   k2 - k1 - credit,
					BreakEvens:      []float64{k1 + credit},
					Payoff:          func(x float64) float64 { return callValue(x, k2) - callValue(x, k1) + credit },
					EstimatedMargin: payoff.SpreadMargin(k2-k1, m),
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "bearPutSpread", Group: GroupVertical, Name: "Bear Put Spread", Sentiment: "moderately bearish (debit)",
				Description: "Buy the higher put, sell the lower put.",
				Inputs: []InputField{
					{"lowerStrike", "Sell lower strike (put)", 31800}, {"lowerPremium", "Sell premium (put)", 200},
					{"higherStrike", "Buy higher strike (put)", 32200}, {"higherPremium", "Buy premium (put)", 80},
				},
				Details: Details{When: "Moderately bearish", Features: []string{"Cheaper than a naked put"}, Pros: []string{"Limited risk"}, Cons: []string{"Capped profit"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Sell, models.Put, p.Value("lowerStrike"), p.Value("lowerPremium"), p.DefaultExpiry),
					unit(models.Buy, models.Put, p.Value("higherStrike"), p.Value("higherPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("lowerStrike"), p.Value("lowerPremium")
				k2, p2 := p.Value("higherStrike"), p.Value("higherPremium")
				debit := p2 - p1
				return models.StrategyResult{
					MaxProfitPoints: k2 - k1 - debit,
					MaxLossPoints:   debit,
					BreakEvens:      []float64{k2 - debit},
					Payoff:          func(x float64) float64 { return putValue(x, k2) - putValue(x, k1) - debit },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "longStraddle", Group: GroupVolatility, Name: "Long Straddle", Sentiment: "big move",
				Description: "Buy a call and a put at the same strike.",
				Inputs: []InputField{
					{"strike", "Strike (call and put)", 32000},
					{"callPremium", "Premium (call)", 250}, {"putPremium", "Premium (put)", 280},
				},
				Details: Details{When: "Ahead of a breakout", Features: []string{"Long both sides"}, Pros: []string{"Unlimited upside"}, Cons: []string{"Expensive"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Call, p.Value("strike"), p.Value("callPremium"), p.DefaultExpiry),
					unit(models.Buy, models.Put, p.Value("strike"), p.Value("putPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k := p.Value("strike")
				cost := p.Value("callPremium") + p.Value("putPremium")
				return models.StrategyResult{
					MaxProfitPoints: inf,
					MaxLossPoints:   cost,
					BreakEvens:      []float64{k - cost, k + cost},
					Payoff:          func(x float64) float64 { return callValue(x, k) + putValue(x, k) - cost },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "longStrangle", Group: GroupVolatility, Name: "Long Strangle", Sentiment: "big move",
				Description: "Buy a lower put and a higher call.",
				Inputs: []InputField{
					{"lowerStrike", "Lower strike (put)", 31800}, {"putPremium", "Premium (put)", 280},
					{"higherStrike", "Higher strike (call)", 32200}, {"callPremium", "Premium (call)", 250},
				},
				Details: Details{When: "Big move expected on a budget", Features: []string{"Cheaper than a straddle"}, Pros: []string{"Unlimited upside"}, Cons: []string{"Distant breakevens"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Put, p.Value("lowerStrike"), p.Value("putPremium"), p.DefaultExpiry),
					unit(models.Buy, models.Call, p.Value("higherStrike"), p.Value("callPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, k2 := p.Value("lowerStrike"), p.Value("higherStrike")
				cost := p.Value("putPremium") + p.Value("callPremium")
				return models.StrategyResult{
					MaxProfitPoints: inf,
					MaxLossPoints:   cost,
					BreakEvens:      []float64{k1 - cost, k2 + cost},
					Payoff:          func(x float64) float64 { return putValue(x, k1) + callValue(x, k2) - cost },
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "ironCondor", Group: GroupVolatility, Name: "Iron Condor", Sentiment: "range bound",
				Description: "Sell a strangle and buy wings outside it.",
				Inputs: []InputField{
					{"putK1", "Buy put K1 (lowest)", 31600}, {"putK1Premium", "Premium K1", 40},
					{"putK2", "Sell put K2", 31800}, {"putK2Premium", "Premium K2", 120},
					{"callK3", "Sell call K3", 32200}, {"callK3Premium", "Premium K3", 110},
					{"callK4", "Buy call K4 (highest)", 32400}, {"callK4Premium", "Premium K4", 30},
				},
				Details: Details{When: "Range bound", Features: []string{"Four legs"}, Pros: []string{"Limited risk"}, Cons: []string{"Higher fees"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Put, p.Value("putK1"), p.Value("putK1Premium"), p.DefaultExpiry),
					unit(models.Sell, models.Put, p.Value("putK2"), p.Value("putK2Premium"), p.DefaultExpiry),
					unit(models.Sell, models.Call, p.Value("callK3"), p.Value("callK3Premium"), p.DefaultExpiry),
					unit(models.Buy, models.Call, p.Value("callK4"), p.Value("callK4Premium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("putK1"), p.Value("putK1Premium")
				k2, p2 := p.Value("putK2"), p.Value("putK2Premium")
				k3, p3 := p.Value("callK3"), p.Value("callK3Premium")
				k4, p4 := p.Value("callK4"), p.Value("callK4Premium")
				credit := p2 + p3 - (p1 + p4)
				width := math.Max(k2-k1, k4-k3)
				return models.StrategyResult{
					MaxProfitPoints: credit,
					MaxLossPoints:   width - credit,
					BreakEvens:      []float64{k2 - credit, k3 + credit},
					Payoff: func(x float64) float64 {
						putSide := putValue(x, k1) - putValue(x, k2)
						callSide := callValue(x, k4) - callValue(x, k3)
						return putSide + callSide + credit
					},
					EstimatedMargin: payoff.SpreadMargin(width, m),
				}
			},
		},
		&closedForm{
			info: Info{
				ID: "ironButterfly", Group: GroupVolatility, Name: "Iron Butterfly", Sentiment: "range bound",
				Description: "Sell a straddle and buy wings outside it.",
				Inputs: []InputField{
					{"lowerPutK", "Buy lower strike (put)", 31800}, {"lowerPutPremium", "Premium (put)", 150},
					{"centerStrike", "Sell center strike (call and put)", 32000},
					{"centerPutPremium", "Sold put premium", 300}, {"centerCallPremium", "Sold call premium", 320},
					{"higherCallK", "Buy higher strike (call)", 32200}, {"higherCallPremium", "Premium (call)", 140},
				},
				Details: Details{When: "Tight range", Features: []string{"Large premium income"}, Pros: []string{"Concentrated profit"}, Cons: []string{"Narrow breakevens"}},
			},
			legs: func(p Parameters) []models.Leg {
				return []models.Leg{
					unit(models.Buy, models.Put, p.Value("lowerPutK"), p.Value("lowerPutPremium"), p.DefaultExpiry),
					unit(models.Sell, models.Put, p.Value("centerStrike"), p.Value("centerPutPremium"), p.DefaultExpiry),
					unit(models.Sell, models.Call, p.Value("centerStrike"), p.Value("centerCallPremium"), p.DefaultExpiry),
					unit(models.Buy, models.Call, p.Value("higherCallK"), p.Value("higherCallPremium"), p.DefaultExpiry),
				}
			},
			calc: func(p Parameters, _ float64) models.StrategyResult {
				k1, p1 := p.Value("lowerPutK"), p.Value("lowerPutPremium")
				k2 := p.Value("centerStrike")
				k3, p3 := p.Value("higherCallK"), p.Value("higherCallPremium")
				credit := p.Value("centerPutPremium") + p.Value("centerCallPremium") - (p1 + p3)
				width := math.Min(k2-k1, k3-k2)
				return models.StrategyResult{
					MaxProfitPoints: credit,
					MaxLossPoints:   width - credit,
					BreakEvens:      []float64{k2 - credit, k2 + credit},
					Payoff: func(x float64) float64 {
						return putValue(x, k1) - putValue(x, k2) - callValue(x, k2) + callValue(x, k3) + credit
					},
					EstimatedMargin: payoff.SpreadMargin(width, m),
				}
			},
		},
	}
}
