package fusionbrain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
)

// PollPolicy bounds the polling loop for one job. Budget is a hard ceiling
// measured from submit; once it elapses no further polls happen regardless
// of the provider's last reported state.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Budget      time.Duration
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = 3 * time.Second
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Budget <= 0 {
		p.Budget = 90 * time.Second
	}
	return p
}

func nextInterval(current, max time.Duration) time.Duration {
	next := current + current/2
	if next > max {
		next = max
	}
	return next
}

// Await drives a submitted job to a terminal state. Pending and processing
// polls reschedule with a capped growing delay; DONE resolves the result
// handles, FAIL surfaces the provider's description and is never retried,
// and an exhausted budget resolves to TIMED_OUT.
func (c *Client) Await(ctx context.Context, job *domain.Job, policy PollPolicy) (*domain.Job, error) {
	policy = policy.withDefaults()
	deadline := job.SubmittedAt.Add(policy.Budget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	interval := policy.Interval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.timedOut(job, policy, ctx.Err())
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return c.timedOut(job, policy, ctx.Err())
		}

		status, err := c.Status(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return c.timedOut(job, policy, ctx.Err())
			}
			return job, err
		}

		switch status.State {
		case domain.JobDone:
			job.State = domain.JobDone
			job.Handles = status.Handles
			if len(job.Handles) == 0 {
				return job, domain.Upstream(0, "fusionbrain: job done without result files")
			}
			c.logger.Info().
				Str("job_id", job.ID).
				Int("handles", len(job.Handles)).
				Dur("elapsed", time.Since(job.SubmittedAt)).
				Msg("fusionbrain: job done")
			return job, nil
		case domain.JobFailed:
			job.State = domain.JobFailed
			desc := status.Description
			if desc == "" {
				desc = "generation failed"
			}
			return job, domain.Upstream(0, "fusionbrain: "+desc)
		default:
			job.State = status.State
		}

		interval = nextInterval(interval, policy.MaxInterval)
		timer.Reset(interval)
	}
}

func (c *Client) timedOut(job *domain.Job, policy PollPolicy, cause error) (*domain.Job, error) {
	job.State = domain.JobTimedOut
	c.logger.Warn().
		Str("job_id", job.ID).
		Dur("budget", policy.Budget).
		Msg("fusionbrain: job timed out")
	return job, domain.Timeout(fmt.Sprintf("fusionbrain: job %s exceeded the %s budget", job.ID, policy.Budget), cause)
}

// GenerateImages runs the full submit, poll, fetch protocol and returns one
// artifact per result handle in provider-reported order. Handles are fetched
// concurrently, each under its own per-call deadline.
func (c *Client) GenerateImages(ctx context.Context, req SubmitRequest, policy PollPolicy) ([]domain.Artifact, error) {
	job, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	job, err = c.Await(ctx, job, policy)
	if err != nil {
		return nil, err
	}

	artifacts := make([]domain.Artifact, len(job.Handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, handle := range job.Handles {
		i, handle := i, handle
		g.Go(func() error {
			data, mimeType, err := c.Fetch(gctx, handle)
			if err != nil {
				return err
			}
			artifacts[i] = domain.Artifact{Data: data, MIME: mimeType}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}
