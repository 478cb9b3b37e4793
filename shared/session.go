package shared

import "time"

const (
	// Session names.
	London  = "LONDON"
	NewYork = "NY"
	Other   = "OTHER"
)

// SessionTable holds the fixed UTC hour boundaries for the named market sessions.
// A session spans [open, close) on the hour. The london session takes precedence
// over new york in their overlap window.
type SessionTable struct {
	LondonOpenHour   int `yaml:"london_open_hour"`
	LondonCloseHour  int `yaml:"london_close_hour"`
	NewYorkOpenHour  int `yaml:"newyork_open_hour"`
	NewYorkCloseHour int `yaml:"newyork_close_hour"`
}

// DefaultSessionTable returns the default session boundaries.
func DefaultSessionTable() SessionTable {
	return SessionTable{
		LondonOpenHour:   7,
		LondonCloseHour:  16,
		NewYorkOpenHour:  12,
		NewYorkCloseHour: 21,
	}
}

// Classify returns the session name for the provided time.
func (s *SessionTable) Classify(t time.Time) string {
	hour := t.UTC().Hour()

	switch {
	case hour >= s.LondonOpenHour && hour < s.LondonCloseHour:
		return London
	case hour >= s.NewYorkOpenHour && hour < s.NewYorkCloseHour:
		return NewYork
	default:
		return Other
	}
}

// CurrentSession returns the session name for the provided time using the
// default session boundaries.
func CurrentSession(t time.Time) string {
	table := DefaultSessionTable()
	return table.Classify(t)
}
