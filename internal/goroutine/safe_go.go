package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/skillmarket/escrow-backend/internal/logger"
)

// SafeGoWithContext запускает фоновую горутину с перехватом panic:
// упавшая sweep-джоба не должна ронять весь сервер.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil && logger.Log != nil {
				logger.Log.WithField("stack", string(debug.Stack())).
					Errorf("panic в фоновой горутине: %v", r)
			}
		}()
		fn(ctx)
	}()
}
