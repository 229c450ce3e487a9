package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/perfdiff/internal/output"
	"github.com/wesleyorama2/perfdiff/internal/stats"
	"github.com/wesleyorama2/perfdiff/perf"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the experiments in a configuration file and compare the trials",
		Long: `Run every trial of the experiment file, report the mean latency of each
with its confidence interval, and compare all trials pairwise.

Failed attempts (transport errors or unmet expectations) are excluded from
the statistics and reported separately. Interrupting the run stops after the
attempts in flight and reports the trials that completed.`,
		Args: cobra.ExactArgs(1),
		RunE: runExperiments,
	}

	cmd.Flags().Float64("alpha", stats.DefaultAlpha, "One-tailed significance level for confidence intervals")
	cmd.Flags().IntP("parallel", "p", 1, "Number of trials to run concurrently")
	cmd.Flags().DurationP("timeout", "t", 30*time.Second, "Request timeout")
	cmd.Flags().StringP("format", "f", string(output.FormatText), "Report format ("+output.FormatList()+")")
	cmd.Flags().StringP("output", "o", "", "Output file for report (default: stdout)")
	cmd.Flags().StringSliceP("experiment", "e", nil, "Only run the named experiment (repeatable)")

	return cmd
}

func runExperiments(cmd *cobra.Command, args []string) error {
	alpha, _ := cmd.Flags().GetFloat64("alpha")
	parallel, _ := cmd.Flags().GetInt("parallel")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	formatName, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	experiments, _ := cmd.Flags().GetStringSlice("experiment")
	quiet, _ := cmd.Flags().GetBool("quiet")

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if _, err := stats.IndexForAlpha(alpha); err != nil {
		return fmt.Errorf("invalid --alpha: %w", err)
	}
	if parallel < 1 {
		return fmt.Errorf("invalid --parallel %d: must be at least 1", parallel)
	}

	_, trials, err := loadTrials(args[0], experiments)
	if err != nil {
		return err
	}
	if len(trials) == 0 {
		return errors.New("no trials to run")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := output.NewProgress(cmd.ErrOrStderr(), quiet, colorDisabled(cmd, cmd.ErrOrStderr()))
	result, runErr := perf.RunTrials(ctx, trials, perf.Options{
		Alpha:       &alpha,
		Parallelism: parallel,
		Timeout:     timeout,
		Logger:      slog.Default(),
		OnAttempt:   progress.Update,
	})
	progress.Done()
	if result == nil {
		return runErr
	}

	if err := writeReport(cmd, buildReport(result), format, outputPath); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// buildReport converts a run result for output.
func buildReport(result *perf.Result) *output.Report {
	report := output.NewReport(result.Alpha)
	report.Interrupted = result.Interrupted
	for _, tr := range result.Trials {
		report.Trials = append(report.Trials, output.NewTrialReport(tr.Trial, tr.Results, tr.Analysis, tr.Err))
	}
	report.AddComparisons(result.Comparisons)
	return report
}

func writeReport(cmd *cobra.Command, report *output.Report, format output.OutputFormat, path string) error {
	var w io.Writer = cmd.OutOrStdout()
	noColor := colorDisabled(cmd, w)

	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w, noColor = f, true
	}

	if err := output.NewReporter(w, format, noColor).Write(report); err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to: %s\n", path)
	}
	return nil
}
