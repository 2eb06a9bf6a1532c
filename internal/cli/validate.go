package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"coopsched/internal/job"
)

func newValidateCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario file and list its tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := job.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRIORITY\tDELAY\tUNITS\tUNIT\tCRON\tREPEAT")
			for _, t := range sc.Tasks {
				cron := t.Cron
				if cron == "" {
					cron = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%dms\t%d\t%dms\t%s\t%d\n",
					t.Name, t.PriorityLevel(), t.DelayMS, t.Units, t.UnitMS, cron, t.Repeat)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "scenario.yml", "Scenario YAML")
	return cmd
}
