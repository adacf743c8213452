package resilience

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
)

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. Running out of time yields an ErrTimeout AppError with a
// 503 status, whether the deadline fires first or fn returns the deadline
// error itself. Cancellation of ctx is returned wrapped as is.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()

	var err error
	select {
	case err = <-done:
		if err == nil || timeoutCtx.Err() == nil {
			return err
		}
	case <-timeoutCtx.Done():
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable, "%s exceeded %v", name, timeout)
}
