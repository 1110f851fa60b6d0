package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	setsAddCmd.Flags().String("start", "", "first day of 17lands data (YYYY-MM-DD)")
	setsAddCmd.Flags().Bool("inactive", false, "register the set without processing it")
	setsListCmd.Flags().Bool("active", false, "only list active sets")

	setsCmd.AddCommand(setsAddCmd, setsListCmd)
	rootCmd.AddCommand(setsCmd)
}

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Manage the sets the jobs process.",
}

var setsAddCmd = &cobra.Command{
	Use:   "add CODE",
	Short: "Registers or updates a set.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		inactive, _ := cmd.Flags().GetBool("inactive")
		return current.runner.AddSet(cmd.Context(), args[0], start, !inactive)
	},
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the registered sets.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")
		sets, err := current.store.ListSets(cmd.Context(), activeOnly)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Set", "Start", "Active"})
		for _, s := range sets {
			t.AppendRow(table.Row{s.Code, s.StartDate, s.Active})
		}
		t.Render()
		return nil
	},
}
