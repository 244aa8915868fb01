package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/output"
	"github.com/Haor/vrc-nexus/internal/store"
)

var (
	historyLimit int
	historyPrune int

	historyCmd = &cobra.Command{
		Use:   "history [run-id]",
		Short: "List saved analysis runs",
		Long: `List runs saved with 'analyze --save', newest first. With a run id (or a
unique prefix of one), show that run's scores.`,
		Example: `  # Recent runs
  vrcnexus history

  # Scores of one run
  vrcnexus history 0b1c2d3e

  # Keep only the 10 newest runs
  vrcnexus history --prune 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "runs to list (0 lists all)")
	historyCmd.Flags().IntVar(&historyPrune, "prune", -1, "delete all but the newest N runs")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openHistory(false)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if historyPrune >= 0 {
		removed, err := st.PruneRuns(historyPrune)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Removed %d runs\n", removed)
		return nil
	}

	if len(args) == 1 {
		run, err := findRun(st, args[0])
		if err != nil {
			return err
		}
		scores, err := st.GetRunScores(run.ID)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderRunsTable([]store.Run{*run}))
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderRunScores(scores, settings.Top))
		return nil
	}

	runs, err := st.ListRuns(historyLimit)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "No saved runs found. Run 'vrcnexus analyze --save' to keep one.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderRunsTable(runs))
	return nil
}

// findRun resolves a full run id or a unique prefix of one.
func findRun(st *store.Store, id string) (*store.Run, error) {
	if run, err := st.GetRun(id); err == nil {
		return run, nil
	}

	runs, err := st.ListRuns(0)
	if err != nil {
		return nil, err
	}
	var match *store.Run
	for i := range runs {
		if len(id) > 0 && len(runs[i].ID) >= len(id) && runs[i].ID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return match, nil
}
