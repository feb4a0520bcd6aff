package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 2 * time.Minute
)

// StartPoller refreshes the result list in the background while a user is
// logged in. Consecutive failures back off exponentially up to maxBackoff.
// It returns immediately; the goroutine exits when ctx is done.
func StartPoller(ctx context.Context, c *Client, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		failures := 0
		for {
			if err := refresh(ctx, c); err != nil {
				failures++
			} else {
				failures = 0
			}
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// refresh lists results when the session is authenticated and records the
// outcome in c.Health. Anonymous sessions are skipped.
func refresh(ctx context.Context, c *Client) error {
	if !c.Session.Snapshot().Authenticated() {
		return nil
	}
	_, err := c.Results.List(ctx)
	if ctx.Err() != nil {
		return err
	}
	c.Health.Record(c.Endpoint(), err)
	if err != nil {
		c.logger.Warn("results poll failed", zap.Error(err),
			zap.Int("consecutive_failures", c.Health.Snapshot().ConsecutiveFailures))
	}
	return err
}

func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
