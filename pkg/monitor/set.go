package monitor

import "context"

// Set bundles all poll loops so they start together. Loops left nil are
// skipped.
type Set struct {
	Realtime *Realtime
	Daily    *Daily
	Price    *Price
	Weather  *Weather
	History  *History
}

// Run starts every loop in its own goroutine and returns immediately. The
// loops stop when ctx is cancelled.
func (s *Set) Run(ctx context.Context) {
	if s.Realtime != nil {
		go s.Realtime.Run(ctx)
	}
	if s.Daily != nil {
		go s.Daily.Run(ctx)
	}
	if s.Price != nil {
		go s.Price.Run(ctx)
	}
	if s.Weather != nil {
		go s.Weather.Run(ctx)
	}
	if s.History != nil {
		go s.History.Run(ctx)
	}
}
