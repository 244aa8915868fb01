package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/community"
	"github.com/Haor/vrc-nexus/internal/config"
	"github.com/Haor/vrc-nexus/internal/output"
	"github.com/Haor/vrc-nexus/internal/report"
)

// Retention highlight thresholds: friends need this many hours on record
// to be listed as fading or fresh.
const (
	fadingMinHours = 30
	freshMinHours  = 20
	retentionCount = 8
)

var (
	analyzeSave    bool
	analyzeKeep    int
	analyzeSort    string
	analyzeVerbose bool

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Score every friend and detect communities",
		Long: `Analyze the VRCX database and print:

  • The decay parameters chosen for your activity level
  • Friends ranked by relationship strength (long-term, decayed depth)
  • Friends ranked by recent intimacy (the recent window plus 30/60/90 days)
  • Friends whose mutual list appears hidden
  • Fading and fresh relationships by retention
  • Communities in your mutual-friend graph

Half-life, recent window and resolution default to "auto", which adapts
them to how often you play. Results are deterministic for a given --seed.`,
		Example: `  # Analyze the default Windows VRCX database
  vrcnexus analyze --win

  # Fixed decay parameters and Louvain
  vrcnexus analyze --db VRCX.sqlite3 --halflife 90 --recent 30 --algorithm louvain

  # Rank intimacy over the last 90 days and save the run
  vrcnexus analyze --win --sort intimacy90 --save`,
		RunE: runAnalyze,
	}
)

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "save this run to the history database")
	analyzeCmd.Flags().IntVar(&analyzeKeep, "keep", 50, "saved runs to keep when saving (0 keeps all)")
	analyzeCmd.Flags().StringVar(&analyzeSort, "sort", string(report.MetricIntimacy), "intimacy ranking: intimacy, intimacy30, intimacy60, intimacy90")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "list every community member")

	RootCmd.AddCommand(analyzeCmd)
}

// addAnalysisFlags registers the flags every analyzing command accepts.
// Names match config keys so setup binds them to viper.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(config.KeyHalfLife, config.Auto, "decay half-life in days, or auto")
	f.String(config.KeyRecent, config.Auto, "recent intimacy window in days, or auto")
	f.String(config.KeyAlgorithm, string(community.Leiden), "community algorithm: leiden or louvain")
	f.String(config.KeyResolution, config.Auto, "modularity resolution, or auto")
	f.Int(config.KeyRuns, community.DefaultRuns, "seeded detection runs; the best is kept")
	f.Float64(config.KeyTheta, community.DefaultTheta, "Leiden refinement randomness")
	f.Int64(config.KeySeed, 42, "random seed for community detection")
	f.String(config.KeyEdgeWeighting, string(community.WeightUnit), "mutual link weights: unit or shared")
	f.String(config.KeyTimezone, "Local", "time zone that defines day boundaries")
	f.Float64(config.KeyHiddenQuantile, 0.7, "quantile above which a friend without mutuals is hidden")
	f.Float64(config.KeyNeutralBond, 0.5, "bond ratio for friends without mutual data")
	f.Int(config.KeyTop, 25, "friends per ranking")
}

func parseIntimacyMetric(s string) (report.Metric, error) {
	switch m := report.Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case report.MetricIntimacy, report.MetricIntimacy30, report.MetricIntimacy60, report.MetricIntimacy90:
		return m, nil
	default:
		return "", fmt.Errorf("invalid --sort %q (must be intimacy, intimacy30, intimacy60 or intimacy90)", s)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	metric, err := parseIntimacyMetric(analyzeSort)
	if err != nil {
		return err
	}
	if analyzeKeep < 0 {
		return fmt.Errorf("invalid --keep %d (must be >= 0)", analyzeKeep)
	}

	a, err := runAnalysis(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	maxMembers := 10
	if analyzeVerbose {
		maxMembers = 0
	}
	renderReport(cmd.OutOrStdout(), a.Report, settings.Top, metric, maxMembers)

	if analyzeSave {
		id, err := saveRun(a, analyzeKeep)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Saved run %s\n", id)
	}
	return nil
}

// renderReport writes every section of a report.
func renderReport(out io.Writer, rep *report.Report, top int, intimacy report.Metric, maxMembers int) {
	fmt.Fprint(out, output.RenderSummary(rep.Meta))
	if rep.Meta.Empty {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Relationship strength (top %d)\n", top)
	fmt.Fprint(out, output.RenderStrengthTable(rep.TopBy(report.MetricStrength, top)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Recent intimacy (top %d, by %s)\n", top, intimacy)
	fmt.Fprint(out, output.RenderIntimacyTable(rep.TopBy(intimacy, top)))

	if hidden := rep.Hidden(); len(hidden) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Hidden mutual lists (* above)")
		fmt.Fprint(out, output.RenderHiddenTable(hidden))
	}

	fading, _ := rep.RetentionExtremes(fadingMinHours, retentionCount)
	_, fresh := rep.RetentionExtremes(freshMinHours, retentionCount)
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderRetention(fading, fresh))

	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderCommunities(rep, maxMembers))
}
