package actorutil

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/google/uuid"
)

// ScheduledTask is delivered to the owning actor when a timer fires.
// The actor must hand it back to ActorScheduler.Run.
type ScheduledTask struct {
	id   string
	once bool
	task port.Task
}

func (t ScheduledTask) Id() string {
	return t.id
}

// ActorScheduler implements port.Scheduler on top of protoactor timers.
// Tasks run inside the owner's Receive, so they never race with its state.
// All methods must be called from the owning actor.
type ActorScheduler struct {
	timers *scheduler.TimerScheduler
	self   *actor.PID
	active map[string]scheduler.CancelFunc
}

var _ port.Scheduler = (*ActorScheduler)(nil)

func NewActorScheduler(ctx actor.Context) *ActorScheduler {
	return &ActorScheduler{
		timers: scheduler.NewTimerScheduler(ctx),
		self:   ctx.Self(),
		active: map[string]scheduler.CancelFunc{},
	}
}

func (s *ActorScheduler) After(d time.Duration, task port.Task) port.CancelFunc {
	msg := ScheduledTask{id: uuid.NewString(), once: true, task: task}
	s.active[msg.id] = s.timers.SendOnce(d, s.self, msg)
	return s.canceller(msg.id)
}

func (s *ActorScheduler) Every(d time.Duration, task port.Task) port.CancelFunc {
	msg := ScheduledTask{id: uuid.NewString(), task: task}
	s.active[msg.id] = s.timers.SendRepeatedly(d, d, s.self, msg)
	return s.canceller(msg.id)
}

// Run executes a delivered task unless it was cancelled after its timer fired.
func (s *ActorScheduler) Run(ctx context.Context, msg ScheduledTask) bool {
	if _, ok := s.active[msg.id]; !ok {
		return false
	}
	if msg.once {
		delete(s.active, msg.id)
	}
	msg.task(ctx)
	return true
}

func (s *ActorScheduler) Pending() int {
	return len(s.active)
}

// CancelAll stops every timer. Used when the owner stops or restarts.
func (s *ActorScheduler) CancelAll() {
	for id, cancel := range s.active {
		cancel()
		delete(s.active, id)
	}
}

func (s *ActorScheduler) canceller(id string) port.CancelFunc {
	return func() {
		if cancel, ok := s.active[id]; ok {
			cancel()
			delete(s.active, id)
		}
	}
}
