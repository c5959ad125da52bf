package syncapi

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WaitOptions tune the status poller.
type WaitOptions struct {
	// Interval between status reads. Defaults to 3s.
	Interval time.Duration
	// Timeout is the total polling budget. Defaults to 10m.
	Timeout time.Duration
}

const (
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// Wait polls the generation until it reaches a terminal status. On timeout
// it returns the last observed generation together with ErrPollTimeout.
func (s *GenerationsService) Wait(ctx context.Context, id string, opts *WaitOptions) (*Generation, error) {
	interval := defaultPollInterval
	timeout := defaultPollTimeout
	if opts != nil {
		if opts.Interval > 0 {
			interval = opts.Interval
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last *Generation
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		gen, err := s.Get(ctx, id)
		if err != nil {
			var perm *PermanentError
			if errors.As(err, &perm) || errors.Is(err, ErrGenerationNotFound) {
				return last, err
			}
			if ctx.Err() != nil {
				return last, pollCtxError(ctx, id)
			}
			// Transient read failure; the next tick retries.
			s.client.logger.Warn().Str("generation_id", id).Err(err).Msg("poll read failed")
		} else {
			last = gen
			if gen.Status.Terminal() {
				return gen, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, pollCtxError(ctx, id)
		case <-ticker.C:
		}
	}
}

func pollCtxError(ctx context.Context, id string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%q: %w", id, ErrPollTimeout)
	}
	return ctx.Err()
}
