package commands

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/draftlab/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(
		job("cards", "Ingests 17lands card ratings and Scryfall metadata.", (*pipeline.Runner).Cards),
		job("archetypes", "Ingests 17lands colour-pair win rates.", (*pipeline.Runner).Archetypes),
		trophiesCmd,
		job("synergy", "Recomputes card-pair lift from stored trophy decks.", (*pipeline.Runner).Synergy),
		job("skeletons", "Builds archetype skeletons from trophy decks and synergies.", (*pipeline.Runner).Skeletons),
		job("run", "Runs every job in order.", (*pipeline.Runner).Run),
	)
}

// job wraps a Runner method as a subcommand.
func job(use, short string, fn func(*pipeline.Runner, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fn(current.runner, cmd.Context())
		},
	}
}

var trophiesCmd = &cobra.Command{
	Use:   "trophies",
	Short: "Scrapes recent trophy decks from 17lands.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := current.runner.Trophies(cmd.Context())

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Fetched", "Saved", "Too old", "Failed", "Existing"})
		t.AppendRow(table.Row{summary.Fetched, summary.Saved, summary.SkippedOld, summary.SkippedError, summary.SkippedExisting})
		t.Render()

		return err
	},
}
