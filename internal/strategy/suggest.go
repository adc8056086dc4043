package strategy

import "strings"

// Suggestion is a canned reply to a market view.
type Suggestion struct {
	Reply      string   `json:"reply"`
	Strategies []string `json:"strategies"`
}

type keywordRule struct {
	keywords   []string
	reply      string
	strategies []string
}

// Rules are checked in order; the first keyword hit wins.
var suggestionRules = []keywordRule{
	{
		keywords:   []string{"大漲", "噴出", "rally", "surge", "moon"},
		reply:      "Expecting a strong rally: buy calls for open-ended upside, or use a bull call spread to cut the cost.",
		strategies: []string{"longCall", "bullCallSpread"},
	},
	{
		keywords:   []string{"大跌", "崩盤", "暴跌", "crash", "plunge", "collapse"},
		reply:      "Expecting a sharp drop: buy puts as a hedge or speculation, or use a bear put spread.",
		strategies: []string{"longPut", "bearPutSpread"},
	},
	{
		keywords:   []string{"盤整", "不變", "區間", "整理", "range", "sideways", "flat", "consolidat"},
		reply:      "For a range-bound market an iron condor or iron butterfly harvests time value.",
		strategies: []string{"ironCondor", "ironButterfly"},
	},
	{
		keywords:   []string{"緩漲", "慢慢漲", "grind up", "drift up", "slow rise"},
		reply:      "Expecting a slow climb: sell puts for premium, or use a bull put spread for a safer version.",
		strategies: []string{"shortPut", "bullPutSpread"},
	},
	{
		keywords:   []string{"緩跌", "漲不動", "grind down", "drift down", "stall"},
		reply:      "Expecting a slow fade or a stalled market: sell calls for premium, or use a bear call spread.",
		strategies: []string{"shortCall", "bearCallSpread"},
	},
	{
		keywords:   []string{"波動", "大行情", "方向不明", "volatil", "big move", "breakout", "unclear"},
		reply:      "A big move with no clear direction (elections, earnings calls) suits a straddle or a strangle.",
		strategies: []string{"longStraddle", "longStrangle"},
	},
}

const suggestionHelp = `Not sure what you mean. Try "I think it will rally", "the market is range bound" or "volatility will pick up".`

// Suggest maps a free-text market view to strategy ids by keyword. Text
// with no keyword yields a help reply and no strategies.
func Suggest(text string) Suggestion {
	lower := strings.ToLower(text)
	for _, rule := range suggestionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return Suggestion{Reply: rule.reply, Strategies: append([]string(nil), rule.strategies...)}
			}
		}
	}
	return Suggestion{Reply: suggestionHelp, Strategies: []string{}}
}
