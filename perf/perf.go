package perf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"sort"
	"strings"
	"time"

	"github.com/wesleyorama2/perfdiff/internal/config"
	"github.com/wesleyorama2/perfdiff/internal/http"
	"github.com/wesleyorama2/perfdiff/internal/stats"
	"github.com/wesleyorama2/perfdiff/internal/trial"
)

type (
	// Config is a parsed experiment file.
	Config = config.RootConfig

	// Trial is one concrete request configuration expanded from an experiment.
	Trial = trial.Trial

	// ResultSet holds the recorded attempts of one trial.
	ResultSet = trial.ResultSet

	// AttemptResult is the outcome of a single request.
	AttemptResult = trial.Result

	// Attempt describes a finished attempt, as passed to Options.OnAttempt.
	Attempt = trial.Attempt

	// Executor performs a single attempt of a trial.
	Executor = trial.Executor

	// ExecutorFunc adapts a function to Executor.
	ExecutorFunc = trial.ExecutorFunc

	// Analysis is the statistical summary of a trial.
	Analysis = stats.Analysis

	// Comparison is the outcome of an equivalence test between two trials.
	Comparison = stats.Comparison
)

// UserAgent is sent by the default HTTP executor unless a trial sets its
// own User-Agent header.
const UserAgent = "perfdiff"

// Options configures a run. The zero value is usable.
type Options struct {
	// Alpha is the one-tailed significance level of the confidence
	// intervals. Nil selects stats.DefaultAlpha; zero is a valid level.
	Alpha *float64

	// Parallelism is the number of trials run concurrently. Values below 1
	// run trials one at a time.
	Parallelism int

	// Timeout caps every request made by the default HTTP executor, in
	// addition to each trial's own timeout. Zero keeps the client default
	// of 30s.
	Timeout time.Duration

	// Logger receives debug records for every attempt. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// OnAttempt, if set, is called after every attempt. Calls are
	// serialized.
	OnAttempt func(Attempt)

	// Transport replaces the round tripper of the default HTTP executor.
	Transport nethttp.RoundTripper

	// Executor replaces the HTTP executor. Timeout and Transport are
	// ignored when it is set.
	Executor Executor
}

// TrialResult is the outcome of one trial of a run.
type TrialResult struct {
	Trial Trial

	// Results is nil when the trial did not complete
	Results *ResultSet

	// Analysis is nil when Err is set or the trial did not complete
	Analysis *Analysis

	// Err is the analysis error, e.g. stats.ErrInsufficientSamples when too
	// many attempts failed
	Err error
}

// Result is the outcome of a run.
type Result struct {
	Alpha       float64
	Trials      []TrialResult
	Comparisons []Comparison
	Interrupted bool
	StartTime   time.Time
	Duration    time.Duration
}

// Analyses returns the analyses of the trials that produced one, in trial
// order.
func (r *Result) Analyses() []*Analysis {
	var out []*Analysis
	for _, tr := range r.Trials {
		if tr.Analysis != nil {
			out = append(out, tr.Analysis)
		}
	}
	return out
}

// LoadConfig loads an experiment file and validates it.
func LoadConfig(path string) (*Config, error) {
	return config.LoadAndValidate(path)
}

// ParseConfig parses and validates experiment file contents. path is only
// used to pick the format from its extension.
func ParseConfig(data []byte, path string) (*Config, error) {
	cfg, err := config.ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Expand builds the trials of cfg. When experiments is non-empty only the
// named experiments are kept; naming an unknown experiment is an error.
func Expand(cfg *Config, experiments []string) ([]Trial, error) {
	if len(experiments) > 0 {
		known := make(map[string]bool)
		for _, name := range cfg.ExperimentNames() {
			known[name] = true
		}
		var unknown []string
		for _, name := range experiments {
			if !known[name] {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, fmt.Errorf("unknown experiment(s) %s (available: %s)",
				strings.Join(unknown, ", "), strings.Join(cfg.ExperimentNames(), ", "))
		}
	}

	trials, err := trial.Build(cfg)
	if err != nil {
		return nil, err
	}
	return filterTrials(trials, experiments), nil
}

func filterTrials(trials []Trial, experiments []string) []Trial {
	if len(experiments) == 0 {
		return trials
	}
	keep := make(map[string]bool, len(experiments))
	for _, name := range experiments {
		keep[name] = true
	}
	filtered := make([]Trial, 0, len(trials))
	for _, t := range trials {
		if keep[t.Name] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Run expands cfg and runs all of its trials.
func Run(ctx context.Context, cfg *Config, opts Options) (*Result, error) {
	trials, err := Expand(cfg, nil)
	if err != nil {
		return nil, err
	}
	return RunTrials(ctx, trials, opts)
}

// RunTrials runs trials, analyzes every completed one and compares the
// analyzable trials pairwise.
//
// When ctx is cancelled the returned Result holds the trials that
// completed, Interrupted is set, and the context error is returned with it.
func RunTrials(ctx context.Context, trials []Trial, opts Options) (*Result, error) {
	alpha := stats.DefaultAlpha
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	analyzer, err := stats.NewAnalyzer(nil, alpha)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := opts.Executor
	if executor == nil {
		clientOpts := []http.ClientOption{http.WithHeader("User-Agent", UserAgent)}
		if opts.Timeout > 0 {
			clientOpts = append(clientOpts, http.WithTimeout(opts.Timeout))
		}
		if opts.Transport != nil {
			clientOpts = append(clientOpts, http.WithTransport(opts.Transport))
		}
		executor = http.NewExecutor(clientOpts...)
	}

	runnerOpts := []trial.RunnerOption{trial.WithLogger(logger)}
	if opts.OnAttempt != nil {
		runnerOpts = append(runnerOpts, trial.WithAttemptHook(opts.OnAttempt))
	}
	runner := trial.NewRunner(executor, runnerOpts...)

	result := &Result{Alpha: alpha, StartTime: time.Now()}
	logger.Debug("starting run", "trials", len(trials), "parallel", opts.Parallelism, "alpha", alpha)

	sets, runErr := runner.RunAll(ctx, trials, opts.Parallelism)
	result.Duration = time.Since(result.StartTime)
	result.Interrupted = ctx.Err() != nil
	if runErr != nil && !result.Interrupted {
		return nil, runErr
	}

	analyze(analyzer, result, trials, sets)

	comparisons, err := stats.NewComparator(nil).ComparePairs(result.Analyses())
	if err != nil {
		logger.Warn("some trials could not be compared", "error", err)
	}
	result.Comparisons = comparisons

	if result.Interrupted {
		return result, context.Cause(ctx)
	}
	return result, nil
}

// analyze fills result.Trials. sets is indexed like trials; nil entries did
// not complete.
func analyze(analyzer *stats.Analyzer, result *Result, trials []Trial, sets []*ResultSet) {
	result.Trials = make([]TrialResult, len(trials))
	for i, t := range trials {
		tr := TrialResult{Trial: t, Results: sets[i]}
		if tr.Results != nil {
			tr.Analysis, tr.Err = analyzer.Analyze(tr.Results)
			if errors.Is(tr.Err, stats.ErrInsufficientSamples) {
				tr.Err = stats.ErrInsufficientSamples
			}
		}
		result.Trials[i] = tr
	}
}
