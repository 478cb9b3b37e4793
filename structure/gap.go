package structure

import (
	"time"

	"go.uber.org/atomic"

	"smartmoney/shared"
)

const (
	// maxTrackedGaps is the maximum number of fair value gaps tracked per market.
	maxTrackedGaps = 4
)

// Gap represents a fair value gap - a three candle imbalance left unfilled,
// expected to act as a reaction level for price on retest.
type Gap struct {
	Market    string
	Timeframe shared.Timeframe
	High      float64
	Midpoint  float64
	Low       float64
	Sentiment shared.Sentiment
	Date      time.Time

	Purged           atomic.Bool
	Invalidated      atomic.Bool
	PullbackSignaled atomic.Bool

	createdAt int
}

// NewGap initializes a new fair value gap.
func NewGap(market string, timeframe shared.Timeframe, high float64, low float64,
	sentiment shared.Sentiment, date time.Time, createdAt int) *Gap {
	return &Gap{
		Market:    market,
		Timeframe: timeframe,
		High:      high,
		Midpoint:  (high + low) / 2,
		Low:       low,
		Sentiment: sentiment,
		Date:      date,
		createdAt: createdAt,
	}
}

// detectGap checks the provided three candle span for a fair value gap of at
// least the provided minimum size, expressed as a percentage of price.
func detectGap(span []*shared.Candlestick, minGapPercent float64, counter int) *Gap {
	if len(span) != 3 {
		return nil
	}

	first, last := span[0], span[2]

	switch {
	case first.High < last.Low:
		// The first candle's high does not overlap the third candle's low,
		// leaving a bullish imbalance.
		if last.Low-first.High < first.High*minGapPercent/100 {
			return nil
		}

		return NewGap(last.Market, last.Timeframe, last.Low, first.High, shared.Bullish, last.Date, counter)

	case first.Low > last.High:
		// The first candle's low does not overlap the third candle's high,
		// leaving a bearish imbalance.
		if first.Low-last.High < last.High*minGapPercent/100 {
			return nil
		}

		return NewGap(last.Market, last.Timeframe, first.Low, last.High, shared.Bearish, last.Date, counter)

	default:
		return nil
	}
}

// Update updates the gap with the provided candlestick. Price closing through
// the far boundary of the gap purges it, a second close through invalidates it.
func (g *Gap) Update(candle *shared.Candlestick) {
	if g.Invalidated.Load() {
		return
	}

	purged := g.Purged.Load()

	switch g.Sentiment {
	case shared.Bullish:
		switch {
		case candle.Close < g.Low && !purged:
			g.Purged.Store(true)
		case candle.Close < g.Low && purged:
			g.Invalidated.Store(true)
		}

	case shared.Bearish:
		switch {
		case candle.Close > g.High && !purged:
			g.Purged.Store(true)
		case candle.Close > g.High && purged:
			g.Invalidated.Store(true)
		}
	}
}

// Pullback reports whether the provided candle's range re-enters the gap
// without fully closing through it. Fires at most once per gap, for candles
// after the one that created it.
func (g *Gap) Pullback(candle *shared.Candlestick, counter int) bool {
	if counter <= g.createdAt || g.Invalidated.Load() || g.PullbackSignaled.Load() {
		return false
	}

	var pullback bool
	switch g.Sentiment {
	case shared.Bullish:
		// A bullish gap sits below price, a pullback dips into the gap range
		// and holds above its low.
		pullback = candle.Low <= g.High && candle.Close > g.Low
	case shared.Bearish:
		// A bearish gap sits above price, a pullback pushes into the gap range
		// and holds below its high.
		pullback = candle.High >= g.Low && candle.Close < g.High
	}

	if pullback {
		g.PullbackSignaled.Store(true)
	}

	return pullback
}
