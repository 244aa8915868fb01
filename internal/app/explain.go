package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/config"
	"github.com/Haor/vrc-nexus/internal/output"
	"github.com/Haor/vrc-nexus/internal/store"
)

var (
	explainHistory int

	explainCmd = &cobra.Command{
		Use:   "explain <friend>",
		Short: "Show the score breakdown for one friend",
		Long: `Display how one friend's relationship strength and recent intimacy were
computed: each dimension's points, the raw values behind them and the
30/60/90 day windows.

The friend is matched by user id, then by display name (case-insensitive).
Nicknames can be declared in $XDG_CONFIG_HOME/vrcnexus/aliases, one
"nickname=user id or display name" per line.

When runs were saved with 'analyze --save', the friend's scores across
those runs are shown too.`,
		Example: `  # Explain by display name
  vrcnexus explain "Alice" --win

  # Explain by user id
  vrcnexus explain usr_0123abcd-... --db VRCX.sqlite3`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("missing friend name\nUsage: vrcnexus explain <friend>")
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: runExplain,
	}
)

func init() {
	addAnalysisFlags(explainCmd)
	explainCmd.Flags().IntVar(&explainHistory, "history-runs", 10, "saved runs to show in the trend (0 hides it)")

	RootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	query := args[0]
	if dir, err := config.Dir(); err == nil {
		aliases, err := config.LoadAliases(dir)
		if err != nil {
			logger.Warn("failed to read aliases", "err", err)
		}
		query = aliases.Resolve(query)
	}

	a, err := runAnalysis(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	rec, ok := a.Report.Find(query)
	if !ok {
		return fmt.Errorf("friend not found: %s\nCheck the spelling or use the user id", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderExplain(*rec, a.Report.Meta))

	if explainHistory <= 0 {
		return nil
	}
	st, err := openHistory(false)
	if err != nil {
		logger.Debug("no run history", "err", err)
		return nil
	}
	defer st.Close()

	points, err := st.FriendTrend(rec.FriendID, explainHistory)
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		return nil
	case err != nil:
		return err
	case len(points) > 0:
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Saved runs:")
		fmt.Fprint(out, output.RenderTrend(points))
	}
	return nil
}
