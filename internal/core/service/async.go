package service

import (
	"context"

	"github.com/berfenger/homedash/internal/core/port"
)

// Done receives the outcome of an operation on the owner's control thread.
// A nil Done is allowed.
type Done func(err error)

func complete(done Done, err error) {
	if done != nil {
		done(err)
	}
}

// execute runs work through ex and hands its typed result to then.
func execute[T any](ex port.Executor, work func(context.Context) (T, error), then func(T, error)) {
	ex.Execute(func(ctx context.Context) (any, error) {
		result, err := work(ctx)
		return result, err
	}, func(result any, err error) {
		typed, _ := result.(T)
		then(typed, err)
	})
}

func executeErr(ex port.Executor, work func(context.Context) error, then func(error)) {
	ex.Execute(func(ctx context.Context) (any, error) {
		return nil, work(ctx)
	}, func(_ any, err error) {
		then(err)
	})
}
