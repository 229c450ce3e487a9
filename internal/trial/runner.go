package trial

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Executor performs a single attempt of a trial.
type Executor interface {
	Execute(ctx context.Context, t Trial) Result
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t Trial) Result

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, t Trial) Result {
	return f(ctx, t)
}

// Phase is the stage of a trial an attempt belongs to.
type Phase string

const (
	// PhaseWarmup attempts are discarded.
	PhaseWarmup Phase = "warmup"
	// PhaseSample attempts are recorded.
	PhaseSample Phase = "sample"
)

// Attempt describes one finished attempt, passed to the attempt hook.
type Attempt struct {
	Trial  *Trial
	Phase  Phase
	Index  int // 1-based within the phase
	Total  int // attempts in the phase
	Result Result
}

// Runner executes trials: warmup attempts first, then the recorded samples.
//
// Attempts within a trial are strictly sequential. Cancellation is observed
// between attempts; a request already in flight is allowed to finish.
type Runner struct {
	executor  Executor
	logger    *slog.Logger
	onAttempt func(Attempt)
	hookMu    sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for per-attempt debug records.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAttemptHook registers fn to be called after every attempt. Calls are
// serialized even when trials run in parallel.
func WithAttemptHook(fn func(Attempt)) RunnerOption {
	return func(r *Runner) {
		r.onAttempt = fn
	}
}

// NewRunner creates a Runner around executor.
func NewRunner(executor Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes t and returns its recorded attempts.
//
// The sample loop always makes exactly t.Samples attempts; failed attempts
// are recorded, not retried. If ctx is cancelled, Run stops at the next
// attempt boundary and returns the partial result set with ctx's error.
func (r *Runner) Run(ctx context.Context, t Trial) (*ResultSet, error) {
	var limiter *rate.Limiter
	if t.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(t.Rate), 1)
	}

	rs := &ResultSet{
		Trial:   t,
		Results: make([]Result, 0, t.Samples),
		Start:   time.Now(),
	}

	r.logger.Debug("trial started",
		slog.String("trial", t.String()),
		slog.Int("warmup", t.Warmup),
		slog.Int("samples", t.Samples))

	for i := 0; i < t.Warmup; i++ {
		if _, err := r.attempt(ctx, &t, limiter, PhaseWarmup, i, t.Warmup); err != nil {
			rs.End = time.Now()
			return rs, err
		}
	}

	for i := 0; i < t.Samples; i++ {
		res, err := r.attempt(ctx, &t, limiter, PhaseSample, i, t.Samples)
		if err != nil {
			rs.End = time.Now()
			return rs, err
		}
		rs.Results = append(rs.Results, res)
	}

	rs.End = time.Now()
	r.logger.Debug("trial finished",
		slog.String("trial", t.String()),
		slog.Duration("elapsed", rs.Elapsed()),
		slog.Int("failures", rs.Failures()))

	return rs, nil
}

func (r *Runner) attempt(ctx context.Context, t *Trial, limiter *rate.Limiter, phase Phase, i, total int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Result{}, err
		}
	}

	res := r.executor.Execute(context.WithoutCancel(ctx), *t)

	attrs := []any{
		slog.String("trial", t.Name),
		slog.String("phase", string(phase)),
		slog.Int("attempt", i+1),
		slog.Duration("duration", res.Duration),
		slog.Int("status", res.StatusCode),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	r.logger.Debug("attempt", attrs...)

	if r.onAttempt != nil {
		r.hookMu.Lock()
		r.onAttempt(Attempt{Trial: t, Phase: phase, Index: i + 1, Total: total, Result: res})
		r.hookMu.Unlock()
	}

	return res, nil
}

// RunAll runs independent trials, at most parallelism at a time. The
// returned slice is in trial order; entries for trials that did not
// complete are nil.
func (r *Runner) RunAll(ctx context.Context, trials []Trial, parallelism int) ([]*ResultSet, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]*ResultSet, len(trials))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i := range trials {
		g.Go(func() error {
			rs, err := r.Run(gCtx, trials[i])
			if err != nil {
				return fmt.Errorf("trial %s: %w", trials[i].String(), err)
			}
			results[i] = rs
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
