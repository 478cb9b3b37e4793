package shared

import (
	"fmt"
	"time"
)

// CandlestickSnapshot is a bounded lookback window of closed candlesticks for
// one (market, timeframe) pair. Candles are kept ordered by open time with the
// oldest entries evicted once the window is at capacity.
type CandlestickSnapshot struct {
	data  []*Candlestick
	start int
	count int
	size  int

	lastOpenTime time.Time
}

// NewCandlestickSnapshot initializes a new candlestick snapshot with the
// provided window size.
func NewCandlestickSnapshot(size int) (*CandlestickSnapshot, error) {
	if size <= 0 {
		return nil, fmt.Errorf("snapshot size must be positive, got %d", size)
	}

	return &CandlestickSnapshot{
		data: make([]*Candlestick, size),
		size: size,
	}, nil
}

// Update appends the provided candlestick to the snapshot. A malformed candle
// is rejected with an error, a duplicate or out of order candle is dropped
// silently. The returned flag indicates whether the candle was accepted.
func (s *CandlestickSnapshot) Update(candle *Candlestick) (bool, error) {
	err := candle.Validate()
	if err != nil {
		return false, err
	}

	// Late or duplicate deliveries are an expected hazard of polling, drop
	// them without disturbing the window.
	if !s.lastOpenTime.IsZero() && !candle.Date.After(s.lastOpenTime) {
		return false, nil
	}

	end := (s.start + s.count) % s.size
	s.data[end] = candle

	if s.count == s.size {
		// Overwrite the oldest entry when the snapshot is at capacity.
		s.start = (s.start + 1) % s.size
	} else {
		s.count++
	}

	s.lastOpenTime = candle.Date

	return true, nil
}

// Count returns the number of candles currently held by the snapshot.
func (s *CandlestickSnapshot) Count() int {
	return s.count
}

// Last returns the most recent candle held by the snapshot.
func (s *CandlestickSnapshot) Last() *Candlestick {
	if s.count == 0 {
		return nil
	}

	idx := (s.start + s.count - 1) % s.size
	return s.data[idx]
}

// LastN fetches the last n number of elements from the snapshot.
func (s *CandlestickSnapshot) LastN(n int) []*Candlestick {
	if n <= 0 {
		return nil
	}

	// Clamp the number of elements expected if it is greater than the snapshot count.
	if n > s.count {
		n = s.count
	}

	set := make([]*Candlestick, n)
	start := (s.start + s.count - n + s.size) % s.size

	for i := range n {
		idx := (start + i) % s.size
		set[i] = s.data[idx]
	}

	return set
}

// Closes returns the close prices of all candles held by the snapshot, ordered
// by open time ascending.
func (s *CandlestickSnapshot) Closes() []float64 {
	candles := s.LastN(s.count)
	closes := make([]float64, len(candles))
	for idx := range candles {
		closes[idx] = candles[idx].Close
	}

	return closes
}
