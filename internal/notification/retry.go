package notification

import (
	"context"
	"log"
	"time"
)

// RetryingNotifier wraps another Notifier and retries failed sends.
// Alert delivery is best-effort: after the final attempt fails the
// error is logged and swallowed, never returned to the caller's
// trading path.
type RetryingNotifier struct {
	inner    Notifier
	attempts int
	backoff  time.Duration
}

// NewRetryingNotifier wraps inner with up to attempts tries and a
// linear backoff between them.
func NewRetryingNotifier(inner Notifier, attempts int, backoff time.Duration) *RetryingNotifier {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingNotifier{inner: inner, attempts: attempts, backoff: backoff}
}

func (r *RetryingNotifier) Send(ctx context.Context, alert Alert) error {
	var lastErr error
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * r.backoff):
			}
		}
		if err := r.inner.Send(ctx, alert); err != nil {
			lastErr = err
			log.Printf("[notify] send attempt %d/%d failed: %v", i+1, r.attempts, err)
			continue
		}
		return nil
	}
	log.Printf("[notify] alert %q dropped after %d attempts: %v", alert.Title, r.attempts, lastErr)
	return nil
}
