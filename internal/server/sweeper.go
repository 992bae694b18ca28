package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/rs/zerolog/log"
)

// sweepTimeout bounds one sweep when the cadence comes from a schedule.
const sweepTimeout = time.Minute

// Sweeper periodically gives orphaned frame payloads an expiry. A cron
// Schedule takes precedence over Interval.
type Sweeper struct {
	Relay    *relay.Relay
	Schedule *cronexpr.Expression
	Interval time.Duration
	Grace    time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

func NewSweeper(r *relay.Relay, schedule *cronexpr.Expression, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		Relay:    r,
		Schedule: schedule,
		Interval: interval,
		Grace:    grace,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enabled reports whether Start will run a loop.
func (s *Sweeper) Enabled() bool {
	return s.Schedule != nil || s.Interval > 0
}

// next returns how long to wait before the sweep following now.
func (s *Sweeper) next(now time.Time) time.Duration {
	if s.Schedule != nil {
		at := s.Schedule.Next(now)
		if at.IsZero() {
			return -1
		}
		return at.Sub(now)
	}
	return s.Interval
}

// Start launches the sweep loop. It is a no-op when no cadence is set or
// after Stop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	if !s.Enabled() {
		close(s.done)
		return
	}
	go s.loop()
}

func (s *Sweeper) loop() {
	defer close(s.done)
	for {
		wait := s.next(time.Now())
		if wait < 0 {
			log.Warn().Msg("sweep schedule has no future run; sweeper stopped")
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			s.tick()
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish. It is safe
// to call more than once and without a prior Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

func (s *Sweeper) tick() {
	timeout := s.Interval
	if s.Schedule != nil || timeout <= 0 {
		timeout = sweepTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := s.Relay.Sweep(ctx, s.Grace); err != nil {
		log.Warn().Err(err).Msg("orphan sweep failed")
	}
}
