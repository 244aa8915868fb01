package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/config"
	"github.com/Haor/vrc-nexus/internal/logging"
)

var (
	cfgFile string

	// v holds every setting source; flags of the running command are bound
	// to it in setup.
	v = config.New()

	// settings and logger are resolved once per invocation in setup.
	settings config.Settings
	logger   = logging.Discard()

	// RootCmd is the root command for vrcnexus
	RootCmd = &cobra.Command{
		Use:   "vrcnexus",
		Short: "Friend relationship analysis for VRCX databases",
		Long: `vrcnexus reads the instance join/leave log VRCX records and scores every
friend on two independent 0-100 scales:

  • Relationship strength: long-term depth, decayed so old time fades
  • Recent intimacy: how much of your recent online time you shared

It also partitions your mutual-friend graph into communities with Leiden
(or Louvain) modularity optimization.

VRCX must have been running while you played; vrcnexus only reads its
database and never modifies it.

Configuration is read from $XDG_CONFIG_HOME/vrcnexus/config.toml, then
VRCNEXUS_* environment variables, then flags.

Examples:
  # Analyze the default Windows VRCX database
  vrcnexus analyze --win

  # Analyze a copied database and keep the run
  vrcnexus analyze --db ./VRCX.sqlite3 --save

  # Explain one friend's scores
  vrcnexus explain "Alice"

  # Re-analyze whenever VRCX writes
  vrcnexus watch --win`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "vrcnexus: friend relationship analysis for VRCX")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'vrcnexus analyze --win' (or --db PATH) to get started.")
			fmt.Fprintln(out, "Run 'vrcnexus --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/vrcnexus/config.toml)")
	pf.String(config.KeyDB, "VRCX.sqlite3", "VRCX database path")
	pf.Bool(config.KeyWin, false, "read the VRCX database under %APPDATA%\\VRCX")
	pf.String(config.KeyPrefix, "", "per-user table prefix (default: detected)")
	pf.String(config.KeyHistory, "", "run history database (default: ~/.vrcnexus/nexus.db)")
	pf.String(config.KeyLogLevel, logging.DefaultLevel, "log level: debug, info, warn, error")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setup binds the running command's flags, reads the config file and
// resolves settings and the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	used, err := config.ReadFile(v, cfgFile)
	if err != nil {
		return err
	}

	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s

	l, err := logging.New(cmd.ErrOrStderr(), settings.LogLevel)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Debug("loaded config", "file", used)
	}
	return nil
}

// dataPath returns name inside ~/.vrcnexus, creating the directory.
func dataPath(name string) (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create vrcnexus directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	return dataPath("watch.pid")
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	return dataPath("watch.log")
}

// componentLogger returns the invocation logger tagged for a component.
func componentLogger(name string) *log.Logger {
	return logging.WithPrefix(logger, name)
}
