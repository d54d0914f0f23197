package port

import (
	"context"
	"time"
)

type Task func(ctx context.Context)

// CancelFunc stops a pending timer. Calling it more than once is a no-op.
type CancelFunc func()

// Scheduler runs tasks on the owner's control thread.
type Scheduler interface {
	After(d time.Duration, task Task) CancelFunc
	Every(d time.Duration, task Task) CancelFunc
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Executor runs blocking work off the owner's control thread and calls then
// back on that thread with the outcome. Work must not touch owner state.
type Executor interface {
	Execute(work func(ctx context.Context) (any, error), then func(result any, err error))
}
