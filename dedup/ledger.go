package dedup

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrLedgerClosed is returned once the ledger has shut down. Callers treat any
// ledger error as a suppression, never as permission to alert.
var ErrLedgerClosed = errors.New("dedup ledger closed")

// LedgerConfig represents the dedup ledger configuration.
type LedgerConfig struct {
	// Horizon is the retention horizon for recorded setup ids. An id recorded
	// within the horizon suppresses re-emission, beyond it the setup alerts
	// again.
	Horizon time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Ledger tracks emitted setup ids over a sliding retention horizon. All
// methods take the evaluation clock instead of reading the wall clock, so a
// replayed candle stream reproduces identical suppression decisions.
type Ledger struct {
	cfg    *LedgerConfig
	mtx    sync.Mutex
	ids    map[string]time.Time
	clock  time.Time
	closed bool
}

// NewLedger initializes a new dedup ledger.
func NewLedger(cfg *LedgerConfig) (*Ledger, error) {
	if cfg.Horizon <= 0 {
		return nil, errors.New("dedup horizon must be positive")
	}

	return &Ledger{
		cfg: cfg,
		ids: make(map[string]time.Time),
	}, nil
}

// Seen reports whether the provided setup id was recorded within the retention
// horizon as of the provided time. A stale entry is dropped on access.
func (l *Ledger) Seen(id string, now time.Time) (bool, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return false, ErrLedgerClosed
	}

	l.advanceClock(now)

	recordedAt, ok := l.ids[id]
	if !ok {
		return false, nil
	}

	if now.Sub(recordedAt) > l.cfg.Horizon {
		delete(l.ids, id)
		return false, nil
	}

	return true, nil
}

// Record notes the provided setup id at the provided time, refreshing the
// entry if it already exists.
func (l *Ledger) Record(id string, now time.Time) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return ErrLedgerClosed
	}

	l.advanceClock(now)
	l.ids[id] = now

	return nil
}

// advanceClock moves the ledger clock forward to the provided time. The caller
// must hold the mutex.
func (l *Ledger) advanceClock(now time.Time) {
	if now.After(l.clock) {
		l.clock = now
	}
}

// Evict drops recorded ids older than the retention horizon as of the latest
// evaluation clock and returns the number evicted. Intended to run on a
// schedule, Seen already ages entries on access. Aging against the evaluation
// clock rather than the wall clock keeps the eviction horizon aligned with the
// one Seen enforces, entries are recorded at candle open time which trails the
// wall clock by a candle plus poll latency.
func (l *Ledger) Evict() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return 0
	}

	evicted := 0
	for id, recordedAt := range l.ids {
		if l.clock.Sub(recordedAt) > l.cfg.Horizon {
			delete(l.ids, id)
			evicted++
		}
	}

	if evicted > 0 {
		l.cfg.Logger.Debug().Msgf("evicted %d stale setup ids", evicted)
	}

	return evicted
}

// Close shuts down the ledger. Subsequent lookups and records error, which
// suppresses any setup evaluated during shutdown.
func (l *Ledger) Close() {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.closed = true
}
