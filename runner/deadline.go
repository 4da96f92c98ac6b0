package runner

import (
	"context"
	"time"
)

// withDeadline runs one step and treats non-completion within timeout as failure of that step,
// returning onTimeout's error. A zero timeout waits indefinitely. The step is given a context
// that is canceled at the deadline, but a step that ignores it is abandoned rather than
// interrupted. onTimeout is only called in that case, and the abandoned goroutine may keep
// using whatever the step captured.
func withDeadline[T any](
	ctx context.Context,
	timeout time.Duration,
	onTimeout func(time.Duration) error,
	step func(context.Context) (T, error),
) (T, error) {
	if timeout <= 0 {
		return step(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := step(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, onTimeout(timeout)
	}
}
