package convert

import "github.com/jonboulle/clockwork"

// clock supplies "today" for requests without a date. Tests freeze it via
// SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
