package scout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotQuiet is returned when a host stays busy past the wait timeout.
var ErrNotQuiet = errors.New("host did not go quiet")

// WaitOptions controls WaitQuiet.
type WaitOptions struct {
	MaxLoad  float64       // wait until the 1-minute load average is below this
	Interval time.Duration // time between checks
	Timeout  time.Duration // 0 waits until ctx is done
}

// WaitQuiet polls host until its 1-minute load average drops below
// opts.MaxLoad. Metric failures are logged and retried. On timeout it
// returns the last metrics seen together with an error wrapping ErrNotQuiet.
func WaitQuiet(ctx context.Context, client Client, host Host, opts WaitOptions, logger *slog.Logger) (*HostMetrics, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	var last *HostMetrics
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return last, quietErr(host, opts, last, err)
		}

		m, err := Metrics(client, host)
		if err != nil {
			logger.Warn("checking host load", "host", host.Name, "attempt", attempt, "error", err)
			continue
		}
		last = m
		if m.LoadAvg1 < opts.MaxLoad {
			logger.Debug("host is quiet", "host", host.Name, "load1", m.LoadAvg1, "attempts", attempt)
			return m, nil
		}
		logger.Info("waiting for host to go quiet", "host", host.Name, "load1", m.LoadAvg1, "max_load", opts.MaxLoad)
	}
}

// quietErr turns a limiter failure into the caller-facing error. The
// limiter reports a wait that would overrun the deadline before it expires,
// so both cases count as a timeout when the timeout is ours.
func quietErr(host Host, opts WaitOptions, last *HostMetrics, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if last == nil {
		return fmt.Errorf("%w: %s: no load reading within %s", ErrNotQuiet, host.Name, opts.Timeout)
	}
	return fmt.Errorf("%w: %s: load %.2f >= %.2f after %s", ErrNotQuiet, host.Name, last.LoadAvg1, opts.MaxLoad, opts.Timeout)
}
