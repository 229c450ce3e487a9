// Package perf runs perfdiff experiments programmatically.
//
// It exposes the same pipeline as the perfdiff command: an experiment file
// is loaded and validated, expanded into trials, every trial is warmed up and
// sampled over HTTP, each trial is summarized with a confidence interval, and
// all trials are compared pairwise.
//
// # Quick Start
//
//	cfg, err := perf.LoadConfig("experiments.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := perf.Run(context.Background(), cfg, perf.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, tr := range result.Trials {
//	    if tr.Analysis != nil {
//	        fmt.Printf("%s: %.3fms (%.3f - %.3f)\n", tr.Trial,
//	            tr.Analysis.Mean, tr.Analysis.CI.Lower, tr.Analysis.CI.Upper)
//	    }
//	}
//
//	for _, c := range result.Comparisons {
//	    fmt.Printf("%s vs %s: equivalent=%v\n", c.A, c.B, c.Equivalent)
//	}
//
// # Trials
//
// Expand returns the trials without sending any requests, which is useful
// for previewing a parameter space:
//
//	trials, err := perf.Expand(cfg, nil)
//
// RunTrials executes an already expanded (and possibly filtered) list.
//
// # Custom Executors
//
// Options.Executor replaces the HTTP executor, for example to benchmark an
// in-process handler or to drive tests:
//
//	opts := perf.Options{
//	    Executor: perf.ExecutorFunc(func(ctx context.Context, t perf.Trial) perf.AttemptResult {
//	        start := time.Now()
//	        err := call(ctx, t)
//	        return perf.AttemptResult{Duration: time.Since(start), Err: err}
//	    }),
//	}
//
// # Cancellation
//
// Cancelling the context stops every trial at its next attempt boundary.
// Run then returns the trials that completed together with the context
// error, and Result.Interrupted is set.
package perf
