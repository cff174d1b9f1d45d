package cli

import (
	"github.com/Swind/go-task-scheduler/internal/bench"
	"github.com/spf13/cobra"
)

// newListCmd creates the list command
func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available benchmark scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := a.formatter()
			if err != nil {
				return err
			}
			return formatter.Scenarios(cmd.OutOrStdout(), bench.Scenarios)
		},
	}
}
