package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print every setting after the config file, VRCNEXUS_* environment
variables and flags have been applied, plus the paths vrcnexus uses.

Any key can be set in config.toml, e.g.:

  halflife = "auto"
  algorithm = "louvain"
  win = true`,
	RunE: runConfig,
}

func init() {
	addAnalysisFlags(configCmd)

	RootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	s := settings

	values := map[string]string{
		config.KeyDB:             s.DB,
		config.KeyWin:            fmt.Sprint(s.Win),
		config.KeyPrefix:         s.Prefix,
		config.KeyHistory:        s.History,
		config.KeyHalfLife:       config.FormatAuto(s.HalfLife),
		config.KeyRecent:         config.FormatAuto(float64(s.RecentWindow)),
		config.KeyTimezone:       s.Timezone,
		config.KeyAlgorithm:      string(s.Algorithm),
		config.KeyResolution:     config.FormatAuto(s.Resolution),
		config.KeyRuns:           fmt.Sprint(s.Runs),
		config.KeyTheta:          fmt.Sprint(s.Theta),
		config.KeySeed:           fmt.Sprint(s.Seed),
		config.KeyEdgeWeighting:  string(s.EdgeWeighting),
		config.KeyHiddenQuantile: fmt.Sprint(s.HiddenQuantile),
		config.KeyNeutralBond:    fmt.Sprint(s.NeutralBondRatio),
		config.KeyTop:            fmt.Sprint(s.Top),
		config.KeyLogLevel:       s.LogLevel,
	}
	for _, key := range config.Keys() {
		fmt.Fprintf(out, "%-16s %s\n", key, values[key])
	}

	fmt.Fprintln(out)
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "%-16s %s\n", "config file", used)
	} else if dir, err := config.Dir(); err == nil {
		fmt.Fprintf(out, "%-16s %s (not found)\n", "config file", filepath.Join(dir, "config.toml"))
	}
	if db, err := s.DatabasePath(); err == nil {
		fmt.Fprintf(out, "%-16s %s\n", "database", db)
	} else {
		fmt.Fprintf(out, "%-16s %v\n", "database", err)
	}
	if hist, err := s.HistoryPath(); err == nil {
		fmt.Fprintf(out, "%-16s %s\n", "history", hist)
	}
	return nil
}
