// Package charts renders skeleton and archetype reports as interactive HTML.
package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/draftlab/internal/archetype"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title  string   // Page title
	Width  string   // Chart width (e.g., "900px")
	Height string   // Chart height (e.g., "400px")
	Theme  string   // Chart theme
	Colors []string // Series colors
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:  "Archetype skeletons",
		Width:  "900px",
		Height: "400px",
		Theme:  "light",
		Colors: []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4", "#EA7CCC"},
	}
}

// curveBuckets are the mana-curve keys of a skeleton, "0".."7".
var curveBuckets = []string{"0", "1", "2", "3", "4", "5", "6", "7"}

// SkeletonTitle names a skeleton chart.
func SkeletonTitle(sk *models.ArchetypeSkeleton) string {
	if sk.IsAlternative {
		return sk.ArchetypeName + " (alternative)"
	}
	return sk.ArchetypeName
}

// SkeletonCurve returns a bar chart of a skeleton's average mana curve.
func SkeletonCurve(sk *models.ArchetypeSkeleton, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: SkeletonTitle(sk),
			Subtitle: fmt.Sprintf("%d decks, %.1f lands, creature ratio %.3f, openness %d",
				sk.SampleSize, sk.AvgLands, sk.CreatureRatio, sk.OpennessScore),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Mana value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cards"}),
		charts.WithColorsOpts(opts.Colors{config.Colors[0]}),
	)

	curve := make([]opts.BarData, len(curveBuckets))
	for i, bucket := range curveBuckets {
		curve[i] = opts.BarData{Value: sk.AvgManaCurve[bucket]}
	}

	// Deck list curve, lands excluded.
	listed := make([]opts.BarData, len(curveBuckets))
	counts := make([]int, len(curveBuckets))
	for _, entry := range sk.DeckList {
		if cards.ParseTypeLine(entry.Type).IsLand() {
			continue
		}
		counts[min(max(entry.CMC, 0), len(curveBuckets)-1)]++
	}
	for i, n := range counts {
		listed[i] = opts.BarData{Value: n}
	}

	bar.SetXAxis(curveBuckets).
		AddSeries("Average curve", curve).
		AddSeries("Deck list", listed).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)
	return bar
}

// WinRateTrends returns a line chart of the win-rate history of each
// archetype. Histories are aligned on their most recent value.
func WinRateTrends(stats []models.ArchetypeStat, config ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Archetype win rates"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Win rate %"}),
	)

	length := 0
	for _, s := range stats {
		length = max(length, len(s.WinRateHistory))
	}
	labels := make([]string, length)
	for i := range labels {
		labels[i] = strconv.Itoa(i - length + 1)
	}
	line.SetXAxis(labels)

	for i, s := range stats {
		points := make([]opts.LineData, length)
		offset := length - len(s.WinRateHistory)
		for j := range points {
			if j < offset {
				points[j] = opts.LineData{Value: nil}
				continue
			}
			points[j] = opts.LineData{Value: s.WinRateHistory[j-offset]}
		}
		line.AddSeries(archetype.DisplayName(s.Colors), points).
			SetSeriesOptions(
				charts.WithLineChartOpts(opts.LineChart{
					Smooth: opts.Bool(true),
				}),
				charts.WithItemStyleOpts(opts.ItemStyle{
					Color: config.Colors[i%len(config.Colors)],
				}),
			)
	}
	return line
}

// RenderReport writes an HTML page with one mana-curve chart per skeleton,
// followed by the archetype win-rate trends when stats are given.
func RenderReport(w io.Writer, skeletons []models.ArchetypeSkeleton, stats []models.ArchetypeStat, config ChartConfig) error {
	if len(skeletons) == 0 && len(stats) == 0 {
		return fmt.Errorf("nothing to render")
	}

	page := components.NewPage()
	page.PageTitle = config.Title
	for i := range skeletons {
		page.AddCharts(SkeletonCurve(&skeletons[i], config))
	}
	if len(stats) > 0 {
		page.AddCharts(WinRateTrends(stats, config))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteReport renders the report to a file.
func WriteReport(outputPath string, skeletons []models.ArchetypeSkeleton, stats []models.ArchetypeStat, config ChartConfig) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := RenderReport(f, skeletons, stats, config); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
