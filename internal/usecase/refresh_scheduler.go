package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // zone data for CRON_TZ on hosts without zoneinfo

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rewindlauncher/backend/pkg/logger"
	"github.com/rewindlauncher/backend/pkg/metrics"
)

// DefaultResetSchedule is the daily shop rotation: 20:01 Eastern
const DefaultResetSchedule = "CRON_TZ=America/New_York 1 20 * * *"

// DefaultRetryDelay is how long the scheduler waits after a failed refresh
const DefaultRetryDelay = time.Minute

// RefreshFunc performs a forced refresh. A nil error means fresh data was
// fetched and stored.
type RefreshFunc func(ctx context.Context) error

// SchedulerOptions configures a RefreshScheduler
type SchedulerOptions struct {
	ResetSchedule string
	RetryDelay    time.Duration
	Clock         Clock
}

// RefreshScheduler keeps exactly one pending timer that fires a forced refresh,
// either at the payload expiration or at the next daily reset. Every
// ScheduleNext cancels the previous timer before arming a new one.
type RefreshScheduler struct {
	mu         sync.Mutex
	clock      Clock
	reset      cron.Schedule
	retryDelay time.Duration
	refresh    RefreshFunc
	log        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	timer      Timer
	target     time.Time
	armed      bool
	stopped    bool
	generation uint64
	lastFired  time.Time
}

// NewRefreshScheduler parses the reset schedule and returns an idle scheduler
func NewRefreshScheduler(opts SchedulerOptions) (*RefreshScheduler, error) {
	expr := opts.ResetSchedule
	if expr == "" {
		expr = DefaultResetSchedule
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reset schedule %q: %w", expr, err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshScheduler{
		clock:      clock,
		reset:      schedule,
		retryDelay: retryDelay,
		log:        logger.WithModule("scheduler"),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SetRefreshFunc installs the callback run when the timer fires
func (s *RefreshScheduler) SetRefreshFunc(fn RefreshFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = fn
}

// NextReset returns the first daily reset strictly after now
func (s *RefreshScheduler) NextReset(now time.Time) time.Time {
	return s.reset.Next(now).In(now.Location())
}

// Start re-enables a cancelled scheduler and arms it
func (s *RefreshScheduler) Start(expiration *time.Time) time.Time {
	s.mu.Lock()
	if s.stopped {
		s.stopped = false
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.mu.Unlock()

	return s.ScheduleNext(expiration)
}

// ScheduleNext arms the timer at expiration, or at the next daily reset when
// expiration is nil. A target in the past fires immediately. It returns the
// armed instant, or the zero time when the scheduler is cancelled.
func (s *RefreshScheduler) ScheduleNext(expiration *time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return time.Time{}
	}

	now := s.clock.Now()
	mode := "daily-reset"
	var target time.Time

	if expiration != nil && !expiration.IsZero() {
		mode = "expiration"
		target = *expiration
		// The provider still reports an expiration we already fired for; back off
		// instead of refetching in a tight loop.
		if !target.After(now) && !s.lastFired.IsZero() && !target.After(s.lastFired) {
			mode = "retry"
			target = now.Add(s.retryDelay)
		}
	} else {
		target = s.NextReset(now)
	}

	s.armLocked(now, target, mode)
	return target
}

// ScheduleRetry arms the timer one retry delay from now
func (s *RefreshScheduler) ScheduleRetry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return time.Time{}
	}
	now := s.clock.Now()
	target := now.Add(s.retryDelay)
	s.armLocked(now, target, "retry")
	return target
}

// Cancel disarms the pending timer and stops the chain. In-flight refreshes
// see their context cancelled.
func (s *RefreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
	s.stopped = true
	s.generation++
	s.cancel()
}

// Next reports the armed instant
func (s *RefreshScheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.armed
}

func (s *RefreshScheduler) armLocked(now, target time.Time, mode string) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation

	delay := target.Sub(now)
	if delay < 0 {
		delay = 0
	}

	s.target = target
	s.armed = true
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })

	s.log.Info("shop refresh scheduled",
		zap.String("mode", mode),
		zap.Time("at", target),
		zap.String("in", humanize.RelTime(target, now, "ago", "from now")),
	)
}

func (s *RefreshScheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || !s.armed || s.stopped {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.timer = nil
	s.lastFired = s.target
	ctx := s.ctx
	refresh := s.refresh
	s.mu.Unlock()

	var err error
	if refresh != nil {
		err = refresh(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		metrics.ScheduledRefreshes.WithLabelValues("failure").Inc()
		s.log.Warn("scheduled shop refresh failed", zap.Error(err))
	} else {
		metrics.ScheduledRefreshes.WithLabelValues("success").Inc()
	}

	// A successful refresh re-arms through ScheduleNext; only keep the chain
	// alive here when nothing else has armed it since this timer fired.
	if s.stopped || s.generation != gen {
		return
	}
	now := s.clock.Now()
	if err != nil {
		s.armLocked(now, now.Add(s.retryDelay), "retry")
		return
	}
	s.armLocked(now, s.NextReset(now), "daily-reset")
}
