package safego

import (
	"context"
	"runtime/debug"

	"github.com/jklein/kleinchat/pkg/logs"
)

// Recovery recovers a panic and logs it with the stack trace.
func Recovery(ctx context.Context) {
	e := recover()
	if e == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logs.CtxErrorf(ctx, "[Recovery] caught panic: %v\nstacktrace:\n%s", e, string(debug.Stack()))
}
