package shared

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// MarketUpdateSignal relays an accepted closed candle along with the indicator
// state computed from it.
type MarketUpdateSignal struct {
	Candle Candlestick
	State  IndicatorState
	Status chan StatusCode
}

// NewMarketUpdateSignal initializes a new market update signal.
func NewMarketUpdateSignal(candle Candlestick, state IndicatorState) MarketUpdateSignal {
	return MarketUpdateSignal{
		Candle: candle,
		State:  state,
		Status: make(chan StatusCode, 1),
	}
}

// EvaluationSignal requests a setup evaluation for a market following a low
// timeframe candle close.
type EvaluationSignal struct {
	Market string
	Candle Candlestick
	State  IndicatorState
	Events []StructuralEvent
	Status chan StatusCode
}

// NewEvaluationSignal initializes a new evaluation signal.
func NewEvaluationSignal(candle Candlestick, state IndicatorState, events []StructuralEvent) EvaluationSignal {
	return EvaluationSignal{
		Market: candle.Market,
		Candle: candle,
		State:  state,
		Events: events,
		Status: make(chan StatusCode, 1),
	}
}

// SetupSignal relays a confirmed setup for delivery.
type SetupSignal struct {
	Setup  Setup
	Status chan StatusCode
}

// NewSetupSignal initializes a new setup signal.
func NewSetupSignal(setup Setup) SetupSignal {
	return SetupSignal{
		Setup:  setup,
		Status: make(chan StatusCode, 1),
	}
}

// CaughtUpSignal indicates a market has finished ingesting its initial
// historical batch and subsequent candles are live.
type CaughtUpSignal struct {
	Market string
	Status chan StatusCode
}

// NewCaughtUpSignal initializes a new caught up signal.
func NewCaughtUpSignal(market string) CaughtUpSignal {
	return CaughtUpSignal{
		Market: market,
		Status: make(chan StatusCode, 1),
	}
}
