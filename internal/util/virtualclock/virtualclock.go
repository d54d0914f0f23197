// Package virtualclock provides a manually advanced port.Scheduler and an
// inline port.Executor for tests. It is not safe for concurrent use; tasks run
// on the goroutine calling Advance, executions on the caller or on Release.
package virtualclock

import (
	"context"
	"time"

	"github.com/berfenger/homedash/internal/core/port"
)

type timer struct {
	id        uint64
	at        time.Time
	every     time.Duration
	task      port.Task
	cancelled bool
}

type Scheduler struct {
	ctx    context.Context
	now    time.Time
	seq    uint64
	timers []*timer
	held   bool
	queue  []func()
}

var _ port.Scheduler = (*Scheduler)(nil)
var _ port.Clock = (*Scheduler)(nil)
var _ port.Executor = (*Scheduler)(nil)

func New(start time.Time) *Scheduler {
	return &Scheduler{
		ctx: context.Background(),
		now: start,
	}
}

func (s *Scheduler) Now() time.Time {
	return s.now
}

func (s *Scheduler) After(d time.Duration, task port.Task) port.CancelFunc {
	return s.add(d, 0, task)
}

func (s *Scheduler) Every(d time.Duration, task port.Task) port.CancelFunc {
	if d <= 0 {
		panic("virtualclock: non-positive interval")
	}
	return s.add(d, d, task)
}

func (s *Scheduler) add(d, every time.Duration, task port.Task) port.CancelFunc {
	s.seq++
	t := &timer{
		id:    s.seq,
		at:    s.now.Add(d),
		every: every,
		task:  task,
	}
	s.timers = append(s.timers, t)
	return func() {
		t.cancelled = true
		s.prune()
	}
}

// Advance moves the clock forward by d, running every task that falls due in
// time order. It returns the number of task runs.
func (s *Scheduler) Advance(d time.Duration) int {
	target := s.now.Add(d)
	runs := 0
	for {
		next := s.next(target)
		if next == nil {
			break
		}
		s.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.cancelled = true
			s.prune()
		}
		next.task(s.ctx)
		runs++
	}
	s.now = target
	return runs
}

// Pending returns the number of live timers.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

// NextDue returns the delay until the earliest live timer.
func (s *Scheduler) NextDue() (time.Duration, bool) {
	var earliest *timer
	for _, t := range s.timers {
		if earliest == nil || t.at.Before(earliest.at) {
			earliest = t
		}
	}
	if earliest == nil {
		return 0, false
	}
	return earliest.at.Sub(s.now), true
}

func (s *Scheduler) next(target time.Time) *timer {
	var earliest *timer
	for _, t := range s.timers {
		if t.cancelled || t.at.After(target) {
			continue
		}
		if earliest == nil || t.at.Before(earliest.at) || (t.at.Equal(earliest.at) && t.id < earliest.id) {
			earliest = t
		}
	}
	return earliest
}

func (s *Scheduler) prune() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.timers = live
}

// Execute runs work and then at once, or queues both while held.
func (s *Scheduler) Execute(work func(context.Context) (any, error), then func(any, error)) {
	run := func() {
		result, err := work(s.ctx)
		then(result, err)
	}
	if s.held {
		s.queue = append(s.queue, run)
		return
	}
	run()
}

// Hold queues every later execution until Release.
func (s *Scheduler) Hold() {
	s.held = true
}

// Release runs the queued executions in order, including the ones they start,
// and goes back to running inline. It returns the number of executions run.
func (s *Scheduler) Release() int {
	s.held = false
	runs := 0
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		next()
		runs++
	}
	return runs
}

// InFlight returns the number of held executions.
func (s *Scheduler) InFlight() int {
	return len(s.queue)
}
