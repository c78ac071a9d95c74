// Package monitor runs the poll loops that keep the latest energy data
// fresh: realtime power, daily aggregates, tariff, weather, and time series.
// Each loop is independent, emits every outcome to a latest-value slot, and
// never terminates on its own.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/common"
	"github.com/paulthvt/solareco/pkg/log"
)

// ErrSiteNotSelected fails an iteration when settings hold no site. The loop
// keeps retrying; the user may select a site at any moment.
var ErrSiteNotSelected = errors.New("no site selected")

// Result is the outcome of one poll iteration. Failures are emitted too so
// consumers can tell stale data from an error state.
type Result[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Slot holds the latest Result and fans it out to subscribers. It is a
// latest-value cell, not a queue: a new value overwrites the old one and
// slow subscribers only ever see the most recent state.
type Slot[T any] struct {
	mu   sync.Mutex
	set  bool
	last Result[T]
	subs []chan Result[T]
}

// Publish stores r and delivers it to every subscriber, replacing any
// undelivered previous value.
func (s *Slot[T]) Publish(r Result[T]) {
	s.mu.Lock()
	s.set = true
	s.last = r
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case <-ch:
		default:
		}
		ch <- r
	}
}

// Latest returns the most recent result, if any iteration has completed.
func (s *Slot[T]) Latest() (Result[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.set
}

// Subscribe returns a channel carrying the latest result. If one exists it
// is delivered immediately.
func (s *Slot[T]) Subscribe() <-chan Result[T] {
	ch := make(chan Result[T], 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	if s.set {
		ch <- s.last
	}
	s.mu.Unlock()
	return ch
}

// loop is the shared poll cycle: fetch, publish, classify, sleep, repeat.
// fetch runs exactly once per iteration; a 401 spawns a detached session
// recovery that the loop does not wait for.
type loop[T any] struct {
	domain  string
	slot    *Slot[T]
	fetch   func(ctx context.Context) (T, error)
	delay   func(r Result[T]) time.Duration
	recover func(ctx context.Context)

	// test seams, default to the real thing
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func (l *loop[T]) init() {
	if l.sleep == nil {
		l.sleep = common.Sleep
	}
	if l.now == nil {
		l.now = time.Now
	}
}

func (l *loop[T]) run(ctx context.Context) {
	l.init()
	for {
		if ctx.Err() != nil {
			return
		}
		value, err := l.fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		r := Result[T]{Value: value, Err: err, FetchedAt: l.now()}
		l.slot.Publish(r)

		if err != nil {
			switch {
			case errors.Is(err, ErrSiteNotSelected):
				fetchesTotal.WithLabelValues(l.domain, "no_site").Inc()
			case api.IsUnauthorized(err):
				fetchesTotal.WithLabelValues(l.domain, "unauthorized").Inc()
			default:
				fetchesTotal.WithLabelValues(l.domain, "error").Inc()
			}
			log.Ctx(ctx).WarnContext(ctx, "fetch failed",
				slog.String("domain", l.domain),
				slog.Any("error", err),
			)
			if api.IsUnauthorized(err) && l.recover != nil {
				reauthsTotal.Inc()
				go l.recover(context.WithoutCancel(ctx))
			}
		} else {
			fetchesTotal.WithLabelValues(l.domain, "success").Inc()
		}

		if err := l.sleep(ctx, l.delay(r)); err != nil {
			return
		}
	}
}
