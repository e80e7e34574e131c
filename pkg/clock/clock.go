// Package clock provides the process-wide clock used by every time-dependent
// component (countdown, ticker, indicator auto-reload, pacing loop). Tests
// substitute a mock to drive simulated time.
package clock

import (
	"github.com/benbjohnson/clock"
)

var globalClock clock.Clock = clock.New()

func Get() clock.Clock {
	return globalClock
}

func Set(clk clock.Clock) {
	globalClock = clk
}

type Clock = clock.Clock
type Timer = clock.Timer
type Ticker = clock.Ticker
type Mock = clock.Mock

func New() clock.Clock {
	return clock.New()
}

func NewMock() *Mock {
	return clock.NewMock()
}
