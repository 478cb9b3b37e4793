package shared

import (
	"fmt"
	"math"
	"time"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// Direction represents the direction of a trade setup.
type Direction int

const (
	Buy Direction = iota
	Sell
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit closed candlestick for a market. The Date field
// is the candle's open time and is expected to be unique and strictly ascending
// per (market, timeframe).
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// Validate asserts the candlestick is well formed.
func (c *Candlestick) Validate() error {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candlestick for %s has a non-positive price", c.Market)
	}
	if c.High < c.Low {
		return fmt.Errorf("candlestick for %s has high (%f) below low (%f)", c.Market, c.High, c.Low)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candlestick for %s has negative volume", c.Market)
	}
	if c.Date.IsZero() {
		return fmt.Errorf("candlestick for %s has no open time", c.Market)
	}

	return nil
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// Body returns the size of the candlestick's body.
func (c *Candlestick) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// UpperWick returns the size of the candlestick's upper wick.
func (c *Candlestick) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the size of the candlestick's lower wick.
func (c *Candlestick) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}
