package jobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyvo/site/backend/pkg/apierr"
	"github.com/vyvo/site/backend/pkg/metrics"
)

const (
	// DefaultPollInterval is the delay between status checks.
	DefaultPollInterval = 2000 * time.Millisecond
	// DefaultMaxAttempts caps the number of status checks per job.
	DefaultMaxAttempts = 150
)

// PollOptions tunes Poll. Zero values take the defaults.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// OnStatus observes every payload; it cannot influence polling.
	OnStatus func(Status)
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Poll fetches the job status until it is ready or failed. Both terminal
// states are returned without error. The error is POLLING_TIMEOUT once the
// attempt cap is exceeded, CANCELLED when ctx ends, or whatever a single
// status request failed with.
func (c *Client) Poll(ctx context.Context, jobID string, opts PollOptions) (Status, error) {
	if err := requireJobID(jobID); err != nil {
		return Status{}, err
	}
	opts = opts.withDefaults()

	ctx, span := c.tracer.Start(ctx, "jobs.Poll", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.Int("poll.max_attempts", opts.MaxAttempts),
	))
	defer span.End()

	timer := time.NewTimer(opts.Interval)
	timer.Stop()
	defer timer.Stop()

	attempts := 0
	for {
		attempts++
		if attempts > opts.MaxAttempts {
			metrics.PollFinished("timeout")
			c.logger.Error("conversion job polling gave up", "jobID", jobID, "attempts", opts.MaxAttempts)
			return Status{}, c.fail(span, apierr.PollingTimeout(opts.MaxAttempts))
		}

		metrics.PollAttempt()
		status, err := c.Status(ctx, jobID)
		if err != nil {
			metrics.PollFinished("error")
			return Status{}, c.fail(span, err)
		}
		if opts.OnStatus != nil {
			opts.OnStatus(status)
		}

		if outcome := status.Outcome(); outcome != OutcomePending {
			span.SetAttributes(
				attribute.Int("poll.attempts", attempts),
				attribute.String("job.outcome", string(outcome)),
			)
			metrics.PollFinished(string(outcome))
			c.logger.Info("conversion job finished", "jobID", jobID, "outcome", outcome, "attempts", attempts)
			return status, nil
		}

		timer.Reset(opts.Interval)
		select {
		case <-ctx.Done():
			metrics.PollFinished("cancelled")
			return Status{}, c.fail(span, apierr.Cancelled(ctx.Err()))
		case <-timer.C:
		}
	}
}
