package readiness

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval is the pause between readiness checks when a probe does
// not set its own.
const DefaultInterval = 250 * time.Millisecond

// Probe decides when a stage counts as ready. Await blocks until the stage
// is observable or ctx ends, whichever comes first.
type Probe interface {
	Describe() string
	Await(ctx context.Context) error
}

// poll invokes check immediately and then once per interval until it
// succeeds or ctx ends. The last check failure is folded into the returned
// error so timeouts say what was still missing.
func poll(ctx context.Context, interval time.Duration, check func() error) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		err := check()
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last check: %v)", ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}
