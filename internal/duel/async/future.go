// Package async drives duel sessions without blocking the caller. Every
// operation returns a Future that completes when the underlying blocking
// call returns; the session state machine is the one in package duel.
package async

import (
	"context"
	"fmt"

	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// Future is the pending result of one operation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn on its own goroutine. ctx is handed to fn and bounds the
// operation itself, not the wait.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "async operation panicked", zap.Any("panic", r))
				f.err = fmt.Errorf("async operation panicked: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the operation completes or ctx ends. Giving up on the
// wait does not cancel the operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err awaits the future and keeps only the error.
func (f *Future[T]) Err(ctx context.Context) error {
	_, err := f.Await(ctx)
	return err
}
