package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/charts"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

func init() {
	reportCmd.Flags().StringP("out", "o", "skeletons.html", "output HTML file")
	reportCmd.Flags().Bool("open", false, "open the report in the default browser")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Renders stored skeletons and archetype win rates as an HTML report.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")
		open, _ := cmd.Flags().GetBool("open")

		sets, err := current.runner.TargetSets(ctx)
		if err != nil {
			return err
		}

		var skeletons []models.ArchetypeSkeleton
		var archetypeStats []models.ArchetypeStat
		for _, set := range sets {
			for _, format := range current.cfg.Targets.Formats {
				sk, err := current.store.GetSkeletons(ctx, set.Code, format)
				if err != nil {
					return err
				}
				st, err := current.store.GetArchetypeStats(ctx, set.Code, format)
				if err != nil {
					return err
				}
				skeletons = append(skeletons, sk...)
				archetypeStats = append(archetypeStats, st...)
			}
		}

		if err := charts.WriteReport(out, skeletons, archetypeStats, charts.DefaultChartConfig()); err != nil {
			return err
		}
		current.logger.Info("report written",
			zap.String("path", out),
			zap.Int("skeletons", len(skeletons)),
			zap.Int("archetypes", len(archetypeStats)))
		fmt.Fprintln(cmd.OutOrStdout(), out)

		if open {
			return charts.OpenInBrowser(out)
		}
		return nil
	},
}
