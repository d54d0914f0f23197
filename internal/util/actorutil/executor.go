package actorutil

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/berfenger/homedash/internal/core/port"
)

// ExecutedTask carries a finished execution back to the owning actor.
// The actor must hand it to ActorExecutor.Complete.
type ExecutedTask struct {
	then func()
}

// ActorExecutor implements port.Executor with background tasks piped back to
// the owner. Work runs on its own goroutine, continuations inside Receive.
// All methods must be called from the owning actor.
type ActorExecutor struct {
	ctx     actor.Context
	timeout time.Duration
	running int
}

var _ port.Executor = (*ActorExecutor)(nil)

// NewActorExecutor bounds every execution by timeout. Zero means unbounded.
func NewActorExecutor(ctx actor.Context, timeout time.Duration) *ActorExecutor {
	return &ActorExecutor{
		ctx:     ctx,
		timeout: timeout,
	}
}

func (e *ActorExecutor) Execute(work func(context.Context) (any, error), then func(any, error)) {
	e.running++
	NewContextTask(e.ctx, func(c context.Context) (*ExecutedTask, error) {
		result, err := work(c)
		return &ExecutedTask{then: func() { then(result, err) }}, nil
	}).WithTimeout(e.timeout).Recover(func(err error) ExecutedTask {
		return ExecutedTask{then: func() { then(nil, err) }}
	}).PipeTo(e.ctx.Self())
}

// Complete runs the continuation of a finished execution.
func (e *ActorExecutor) Complete(msg ExecutedTask) {
	e.running--
	if msg.then != nil {
		msg.then()
	}
}

// Running returns the number of executions not yet completed.
func (e *ActorExecutor) Running() int {
	return e.running
}
