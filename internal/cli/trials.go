package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/perfdiff/internal/output"
	"github.com/wesleyorama2/perfdiff/perf"
)

func newTrialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trials <config>",
		Short: "List the trials an experiment file expands to, without running them",
		Args:  cobra.ExactArgs(1),
		RunE:  listTrials,
	}

	cmd.Flags().StringP("format", "f", string(output.FormatText), "Output format ("+output.FormatList()+")")
	cmd.Flags().StringSliceP("experiment", "e", nil, "Only include the named experiment (repeatable)")

	return cmd
}

func listTrials(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	experiments, _ := cmd.Flags().GetStringSlice("experiment")

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	_, trials, err := loadTrials(args[0], experiments)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return output.NewReporter(out, format, colorDisabled(cmd, out)).WriteTrials(trials)
}

// loadTrials loads and validates an experiment file and expands it into
// trials, keeping only the named experiments when any are given.
func loadTrials(path string, experiments []string) (*perf.Config, []perf.Trial, error) {
	cfg, err := perf.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	trials, err := perf.Expand(cfg, experiments)
	if err != nil {
		return nil, nil, err
	}
	return cfg, trials, nil
}
