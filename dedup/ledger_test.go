package dedup

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()

	logger := log.With().Str("component", "dedup").Logger()
	ledger, err := NewLedger(&LedgerConfig{
		Horizon: time.Minute * 10,
		Logger:  &logger,
	})
	assert.NoError(t, err)

	return ledger
}

func TestLedger(t *testing.T) {
	ledger := testLedger(t)
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

	// An unrecorded id is unseen.
	seen, err := ledger.Seen("BTCUSDT_BUY_LONDON_28500540", start)
	assert.NoError(t, err)
	assert.False(t, seen)

	err = ledger.Record("BTCUSDT_BUY_LONDON_28500540", start)
	assert.NoError(t, err)

	// The id suppresses within the horizon.
	seen, err = ledger.Seen("BTCUSDT_BUY_LONDON_28500540", start.Add(time.Minute*9))
	assert.NoError(t, err)
	assert.True(t, seen)

	// Beyond the horizon the id ages out and the setup alerts again.
	seen, err = ledger.Seen("BTCUSDT_BUY_LONDON_28500540", start.Add(time.Minute*11))
	assert.NoError(t, err)
	assert.False(t, seen)

	// The aged entry was dropped on access.
	seen, err = ledger.Seen("BTCUSDT_BUY_LONDON_28500540", start)
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestLedgerEvict(t *testing.T) {
	ledger := testLedger(t)
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, ledger.Record("BTCUSDT_BUY_LONDON_28500540", start))
	assert.NoError(t, ledger.Record("ETHUSDT_SELL_NY_28500600", start.Add(time.Minute*8)))

	// Eviction ages entries against the candle clock, not the wall clock, so
	// entries within the horizon survive however long the schedule waits.
	assert.Equal(t, 0, ledger.Evict())

	// A lookup on a later candle advances the clock past the horizon of the
	// older entry.
	_, err := ledger.Seen("SOLUSDT_BUY_OTHER_28500720", start.Add(time.Minute*12))
	assert.NoError(t, err)
	assert.Equal(t, 1, ledger.Evict())

	seen, err := ledger.Seen("ETHUSDT_SELL_NY_28500600", start.Add(time.Minute*12))
	assert.NoError(t, err)
	assert.True(t, seen)
}

func TestLedgerClosed(t *testing.T) {
	ledger := testLedger(t)
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, ledger.Record("BTCUSDT_BUY_LONDON_28500540", start))
	ledger.Close()

	// A closed ledger errors on every call, suppressing emission.
	_, err := ledger.Seen("BTCUSDT_BUY_LONDON_28500540", start)
	assert.Error(t, err)

	err = ledger.Record("ETHUSDT_SELL_NY_28500600", start)
	assert.Error(t, err)

	assert.Equal(t, 0, ledger.Evict())
}
