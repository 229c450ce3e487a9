package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/perfdiff/internal/output"
)

var version = "0.1.0"

// NewRootCmd builds the command tree. A fresh tree is built per call so
// tests can execute commands independently.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "perfdiff",
		Short:   "Benchmark HTTP endpoints across parameter combinations",
		Version: version,
		Long: `perfdiff benchmarks HTTP endpoints described in an experiment file.

Each experiment is expanded into one trial per combination of its query and
path parameters. Every trial is warmed up, sampled, and summarized with a
confidence interval, and all trials are compared pairwise with a two-sample
t-test to show which ones perform differently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			quiet, _ := cmd.Flags().GetBool("quiet")
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), verbose, quiet))
		},
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Disable progress output, show only the final report")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTrialsCmd())
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}

// Execute runs the root command with the process arguments and prints any
// error to stderr.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// colorDisabled combines the --no-color flag with the environment and
// terminal checks for w.
func colorDisabled(cmd *cobra.Command, w io.Writer) bool {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		return true
	}
	return output.ColorDisabled(w)
}
