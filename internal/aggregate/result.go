package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the handle of one scatter task. It is safe to read only after the
// group it was spawned on has been waited on.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the task succeeded.
func (r *Result[T]) Ok() bool { return r.Err == nil }

// Or returns the value, or def when the task failed.
func (r *Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// Spawn runs fn on g and returns its handle. The task never fails the group:
// errors and panics are captured in the handle so sibling tasks keep running.
func Spawn[T any](ctx context.Context, g *errgroup.Group, fn func(context.Context) (T, error)) *Result[T] {
	r := &Result[T]{}
	g.Go(func() error {
		defer func() {
			if p := recover(); p != nil {
				r.Err = fmt.Errorf("panic: %v", p)
			}
		}()
		r.Value, r.Err = fn(ctx)
		return nil
	})
	return r
}
