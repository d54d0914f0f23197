package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilResult = errors.New("result is nil")

// SafeBackgroundTask runs a blocking function outside the actor's Receive and
// delivers the outcome back as a message. Panics and timeouts become errors.
type SafeBackgroundTask[T any] struct {
	system    *actor.ActorSystem
	fn        func(context.Context) (*T, error)
	timeout   time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

// NewContextTask builds a task whose function observes the task timeout through its context.
func NewContextTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		system: ctx.ActorSystem(),
		fn:     fn,
	}
}

// WithTimeout bounds the task. Zero means no bound.
func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = timeout
	return t
}

// OnError is called for failures when no Recover is set.
func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

// Recover turns a failure into a regular result.
func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo sends the result, or the recovered value, to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.system.Root
	t.onSuccess = func(value T) {
		root.Send(pid, value)
	}
	go t.Run()
}

// Run blocks until the task completes.
func (t *SafeBackgroundTask[T]) Run() {
	runCtx, cancel := context.WithCancel(context.Background())
	if t.timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), t.timeout)
	}
	defer cancel()

	bg := io.Map(io.Eval(func() (*T, error) {
		return t.fn(runCtx)
	}), func(a *T) T {
		if a == nil {
			panic(ErrNilResult)
		}
		return *a
	})
	if t.timeout > 0 {
		bg = io.WithTimeout[T](t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error == nil {
		t.succeed(result.Value)
		return
	}
	switch {
	case t.recover != nil:
		t.succeed(t.recover(result.Error))
	case t.onError != nil:
		t.onError(result.Error)
	}
}

func (t *SafeBackgroundTask[T]) succeed(value T) {
	if t.onSuccess != nil {
		t.onSuccess(value)
	}
}
