package structure

import (
	"fmt"

	"github.com/rs/zerolog"

	"smartmoney/shared"
)

// MarketConfig represents the configuration for a market structure detector.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframe is the candle series scanned by the detector.
	Timeframe shared.Timeframe
	// Params holds the detection thresholds for the market.
	Params shared.StrategyParams
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// pendingShift tracks an awaited market structure break. A shift is armed by a
// liquidity sweep and confirmed only by a close beyond the opposite swing
// level.
type pendingShift struct {
	sentiment shared.Sentiment
	level     float64
	armedAt   int
}

// Market scans the candle stream of one (market, timeframe) pair for
// structural events. It is stateful and must be fed candles strictly in open
// time order.
type Market struct {
	cfg    *MarketConfig
	window *shared.CandlestickSnapshot

	swingHighs []*Swing
	swingLows  []*Swing
	pending    []*pendingShift
	gaps       []*Gap

	events  []timedEvent
	counter int
}

// timedEvent pairs a structural event with the candle counter that emitted it.
type timedEvent struct {
	event shared.StructuralEvent
	at    int
}

// NewMarket initializes a new market structure detector.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	window, err := shared.NewCandlestickSnapshot(cfg.Params.Lookback)
	if err != nil {
		return nil, fmt.Errorf("creating structure window: %w", err)
	}

	return &Market{
		cfg:        cfg,
		window:     window,
		swingHighs: make([]*Swing, 0, maxTrackedSwings),
		swingLows:  make([]*Swing, 0, maxTrackedSwings),
		pending:    make([]*pendingShift, 0, 2),
		gaps:       make([]*Gap, 0, maxTrackedGaps),
	}, nil
}

// Update scans the provided candle and indicator state for structural events.
// The returned events are the ones confirmed by this candle, zero or more, and
// are timestamped to it.
func (m *Market) Update(candle *shared.Candlestick, state *shared.IndicatorState) ([]shared.StructuralEvent, error) {
	accepted, err := m.window.Update(candle)
	if err != nil {
		return nil, fmt.Errorf("updating structure window: %w", err)
	}
	if !accepted {
		return nil, nil
	}

	m.counter++

	m.confirmSwings()

	events := make([]shared.StructuralEvent, 0, 2)
	events = append(events, m.detectSweeps(candle)...)
	events = append(events, m.confirmShifts(candle)...)
	events = append(events, m.detectWickRejection(candle, state)...)
	events = append(events, m.updateGaps(candle)...)

	for idx := range events {
		m.events = append(m.events, timedEvent{event: events[idx], at: m.counter})
	}
	m.pruneEvents()

	return events, nil
}

// RecentEvents returns the structural events confirmed within the recency
// window, ordered oldest first.
func (m *Market) RecentEvents() []shared.StructuralEvent {
	recent := make([]shared.StructuralEvent, 0, len(m.events))
	for idx := range m.events {
		recent = append(recent, m.events[idx].event)
	}

	return recent
}

// confirmSwings checks the current window for a newly confirmed swing point.
// The candidate sits two candles back, confirmation lags by that span.
func (m *Market) confirmSwings() {
	if m.window.Count() < swingConfirmationSpan {
		return
	}

	span := m.window.LastN(swingConfirmationSpan)

	if swing := confirmSwing(span, SwingHigh); swing != nil {
		m.swingHighs = trackSwing(m.swingHighs, swing)
	}
	if swing := confirmSwing(span, SwingLow); swing != nil {
		m.swingLows = trackSwing(m.swingLows, swing)
	}
}

// trackSwing appends the provided swing, evicting the oldest beyond capacity.
func trackSwing(swings []*Swing, swing *Swing) []*Swing {
	swings = append(swings, swing)
	if len(swings) > maxTrackedSwings {
		swings = swings[len(swings)-maxTrackedSwings:]
	}

	return swings
}

// detectSweeps checks the candle against the live swing points on both sides.
// A sweep pierces a swing level by at least the configured penetration and
// closes back inside the prior range. Sweeping a high is bearish, sweeping a
// low is bullish.
func (m *Market) detectSweeps(candle *shared.Candlestick) []shared.StructuralEvent {
	events := make([]shared.StructuralEvent, 0, 1)

	for _, swing := range liveSwings(m.swingHighs) {
		penetration := candle.High - swing.Price
		if penetration <= 0 || penetration < swing.Price*m.cfg.Params.SweepPenetrationPercent/100 {
			continue
		}
		if candle.Close >= swing.Price {
			continue
		}

		swing.Swept = true
		events = append(events, shared.StructuralEvent{
			Kind:      shared.LiquiditySweep,
			Market:    m.cfg.Market,
			Timeframe: m.cfg.Timeframe,
			Sentiment: shared.Bearish,
			Level:     swing.Price,
			Date:      candle.Date,
		})
		m.armShift(shared.Bearish, m.swingLows)
	}

	for _, swing := range liveSwings(m.swingLows) {
		penetration := swing.Price - candle.Low
		if penetration <= 0 || penetration < swing.Price*m.cfg.Params.SweepPenetrationPercent/100 {
			continue
		}
		if candle.Close <= swing.Price {
			continue
		}

		swing.Swept = true
		events = append(events, shared.StructuralEvent{
			Kind:      shared.LiquiditySweep,
			Market:    m.cfg.Market,
			Timeframe: m.cfg.Timeframe,
			Sentiment: shared.Bullish,
			Level:     swing.Price,
			Date:      candle.Date,
		})
		m.armShift(shared.Bullish, m.swingHighs)
	}

	return events
}

// armShift arms a pending market structure shift targeting the most recent
// swing point on the opposite side of a sweep. An existing pending shift of
// the same sentiment is replaced.
func (m *Market) armShift(sentiment shared.Sentiment, opposite []*Swing) {
	if len(opposite) == 0 {
		return
	}

	target := opposite[len(opposite)-1]

	for idx := range m.pending {
		if m.pending[idx].sentiment == sentiment {
			m.pending[idx].level = target.Price
			m.pending[idx].armedAt = m.counter
			return
		}
	}

	m.pending = append(m.pending, &pendingShift{
		sentiment: sentiment,
		level:     target.Price,
		armedAt:   m.counter,
	})
}

// confirmShifts resolves pending market structure shifts. A shift confirms
// only when the candle closes beyond the awaited swing level, a wick-only
// breach does not confirm. Stale pending shifts expire.
func (m *Market) confirmShifts(candle *shared.Candlestick) []shared.StructuralEvent {
	events := make([]shared.StructuralEvent, 0, 1)
	remaining := m.pending[:0]

	for _, shift := range m.pending {
		var confirmed bool
		switch shift.sentiment {
		case shared.Bullish:
			confirmed = candle.Close > shift.level
		case shared.Bearish:
			confirmed = candle.Close < shift.level
		}

		switch {
		case confirmed:
			events = append(events, shared.StructuralEvent{
				Kind:      shared.MarketStructureShift,
				Market:    m.cfg.Market,
				Timeframe: m.cfg.Timeframe,
				Sentiment: shift.sentiment,
				Level:     shift.level,
				Date:      candle.Date,
			})
		case m.counter-shift.armedAt > m.cfg.Params.ShiftExpiry:
			// expired, drop.
		default:
			remaining = append(remaining, shift)
		}
	}

	m.pending = remaining

	return events
}

// detectWickRejection checks the candle for a dominant wick tagging a
// bollinger band extreme.
func (m *Market) detectWickRejection(candle *shared.Candlestick, state *shared.IndicatorState) []shared.StructuralEvent {
	if state == nil || !state.BandsValid {
		return nil
	}

	events := make([]shared.StructuralEvent, 0, 1)
	body := candle.Body()

	lowerWick := candle.LowerWick()
	if lowerWick > 0 && lowerWick >= body*m.cfg.Params.WickBodyRatio && candle.Low <= state.BandLower {
		events = append(events, shared.StructuralEvent{
			Kind:      shared.WickRejection,
			Market:    m.cfg.Market,
			Timeframe: m.cfg.Timeframe,
			Sentiment: shared.Bullish,
			Level:     state.BandLower,
			Date:      candle.Date,
		})
	}

	upperWick := candle.UpperWick()
	if upperWick > 0 && upperWick >= body*m.cfg.Params.WickBodyRatio && candle.High >= state.BandUpper {
		events = append(events, shared.StructuralEvent{
			Kind:      shared.WickRejection,
			Market:    m.cfg.Market,
			Timeframe: m.cfg.Timeframe,
			Sentiment: shared.Bearish,
			Level:     state.BandUpper,
			Date:      candle.Date,
		})
	}

	return events
}

// updateGaps resolves pullbacks into tracked fair value gaps, ages them with
// the new candle and records a newly created gap.
func (m *Market) updateGaps(candle *shared.Candlestick) []shared.StructuralEvent {
	events := make([]shared.StructuralEvent, 0, 1)

	remaining := m.gaps[:0]
	for _, gap := range m.gaps {
		if gap.Pullback(candle, m.counter) {
			events = append(events, shared.StructuralEvent{
				Kind:      shared.FairValueGap,
				Market:    m.cfg.Market,
				Timeframe: m.cfg.Timeframe,
				Sentiment: gap.Sentiment,
				Level:     gap.Midpoint,
				GapHigh:   gap.High,
				GapLow:    gap.Low,
				Date:      candle.Date,
			})
		}

		gap.Update(candle)
		if !gap.Invalidated.Load() {
			remaining = append(remaining, gap)
		}
	}
	m.gaps = remaining

	if m.window.Count() >= 3 {
		if gap := detectGap(m.window.LastN(3), m.cfg.Params.MinGapPercent, m.counter); gap != nil {
			m.gaps = append(m.gaps, gap)
			if len(m.gaps) > maxTrackedGaps {
				m.gaps = m.gaps[len(m.gaps)-maxTrackedGaps:]
			}
		}
	}

	return events
}

// pruneEvents drops events older than the confirmation recency window.
func (m *Market) pruneEvents() {
	cutoff := m.counter - m.cfg.Params.ConfirmationWindow
	idx := 0
	for ; idx < len(m.events); idx++ {
		if m.events[idx].at > cutoff {
			break
		}
	}

	m.events = m.events[idx:]
}
