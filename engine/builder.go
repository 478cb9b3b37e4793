package engine

import (
	"fmt"

	"smartmoney/shared"
)

// rewardRiskRatio fixes the take profit at twice the stop distance.
const rewardRiskRatio = 2.0

// BuildSetup constructs a trade setup from a confirmed verdict. The entry is
// the confirming candle's close, the stop loss sits beyond the anchor level
// padded by the configured buffer and the take profit is a fixed multiple of
// the stop distance.
func BuildSetup(candle *shared.Candlestick, state *shared.IndicatorState, verdict *Verdict,
	params shared.StrategyParams, sessions shared.SessionTable) (*shared.Setup, error) {
	entry := candle.Close
	buffer := verdict.Anchor.Level * params.StopLossBufferPercent / 100

	var stopLoss, takeProfit float64
	switch verdict.Direction {
	case shared.Buy:
		stopLoss = verdict.Anchor.Level - buffer
		risk := entry - stopLoss
		if risk <= 0 {
			return nil, fmt.Errorf("%s buy entry %.4f does not clear stop loss %.4f",
				candle.Market, entry, stopLoss)
		}
		takeProfit = entry + rewardRiskRatio*risk
	case shared.Sell:
		stopLoss = verdict.Anchor.Level + buffer
		risk := stopLoss - entry
		if risk <= 0 {
			return nil, fmt.Errorf("%s sell entry %.4f does not clear stop loss %.4f",
				candle.Market, entry, stopLoss)
		}
		takeProfit = entry - rewardRiskRatio*risk
	}

	session := sessions.Classify(candle.Date)

	return &shared.Setup{
		Market:     candle.Market,
		Direction:  verdict.Direction,
		Session:    session,
		ID:         shared.SetupID(candle.Market, verdict.Direction, session, candle.Date, params.SetupBucketSeconds),
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Evidence: shared.Evidence{
			Events:    verdict.Events,
			Trend:     state.Trend,
			Indicator: *state,
		},
		CreatedOn: candle.Date,
	}, nil
}
