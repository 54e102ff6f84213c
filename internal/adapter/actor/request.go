package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
)

// request asks pid and waits for a T, bounded by timeout and ctx's deadline.
func request[T any](ctx context.Context, root *actor.RootContext, pid *actor.PID, timeout time.Duration, msg any) (T, error) {
	var zero T
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return zero, context.DeadlineExceeded
	}
	res, err := root.RequestFuture(pid, msg, timeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected response %T", res)
	}
	return resp, nil
}
