package server

import "time"

// TickerFactory abstracts time.Ticker creation so countdown and turn-timer
// thresholds are testable without wall-clock delays.
type TickerFactory interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type tickerFactory struct{}

func (tickerFactory) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerFactory() TickerFactory {
	return tickerFactory{}
}
