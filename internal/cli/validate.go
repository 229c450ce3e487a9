package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/perfdiff/internal/output"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check an experiment file without sending any requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, trials, err := loadTrials(args[0], nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			noColor := colorDisabled(cmd, out)
			fmt.Fprintf(out, "%s %s: %d experiment(s), %d trial(s)\n",
				output.SuccessIcon(noColor), args[0], len(cfg.Experiments), len(trials))
			return nil
		},
	}
}
