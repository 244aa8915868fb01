package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/output"
	"github.com/Haor/vrc-nexus/internal/report"
	"github.com/Haor/vrc-nexus/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchDebounce    time.Duration
	watchSave        bool
	watchKeep        int

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze whenever VRCX writes its database",
		Long: `Watch the VRCX database and run the analysis again after every burst of
writes. VRCX writes a row each time a player leaves your instance, so the
analysis waits until the database has been quiet for --debounce.

Watch modes:
  • Foreground (default): print each report, Ctrl+C to stop
  • Daemon: run in the background, logging to --log-file
  • Stop: stop a running daemon

With --save every run is kept in the history database, which 'explain'
and 'history' read.`,
		Example: `  # Print a fresh report after each session
  vrcnexus watch --win

  # Save runs in the background
  vrcnexus watch --win --daemon --save

  # Stop the background watcher
  vrcnexus watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	addAnalysisFlags(watchCmd)
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.vrcnexus/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.vrcnexus/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet time before re-analyzing")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "save every run to the history database")
	watchCmd.Flags().IntVar(&watchKeep, "keep", 50, "saved runs to keep (0 keeps all)")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon(cmd.OutOrStdout())
	}

	if watchDaemon {
		return startWatchDaemon(cmd.OutOrStdout())
	}

	dbPath, err := settings.DatabasePath()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if watchDaemonChild {
		out = io.Discard
	}
	w, err := watcher.New(dbPath, watchHandler(out), watcher.Options{
		Debounce:   watchDebounce,
		RunOnStart: true,
		Logger:     componentLogger("watch"),
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if watchDaemonChild {
		// stdout and stderr are the log file here
		return watcher.RunDaemon(ctx, w, watchPIDFile)
	}

	fmt.Fprintf(out, "Watching %s (press Ctrl+C to stop)...\n\n", dbPath)
	if err := watcher.RunDaemon(ctx, w, ""); err != nil {
		return err
	}
	fmt.Fprintln(out, "\n✓ Watcher stopped")
	return nil
}

// watchHandler analyzes the database once, renders the report to out and
// saves it when --save is set.
func watchHandler(out io.Writer) watcher.Handler {
	log := componentLogger("watch")
	return func(ctx context.Context) error {
		a, err := runAnalysis(ctx, io.Discard)
		if err != nil {
			return err
		}
		m := a.Report.Meta
		log.Info("analyzed", "friends", m.FriendCount, "communities", m.CommunityCount,
			"halflife", m.HalfLifeDays, "recent", m.RecentWindowDays)

		fmt.Fprintf(out, "── %s ──\n", now().Format("2006-01-02 15:04:05"))
		renderReport(out, a.Report, settings.Top, report.MetricIntimacy, 10)
		fmt.Fprintln(out)

		if watchSave {
			id, err := saveRun(a, watchKeep)
			if err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}
			log.Info("saved run", "id", id)
		}
		return nil
	}
}

func stopWatchDaemon(out io.Writer) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner(out, "Stopping daemon")
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	if !waitForExit(spinner, watchPIDFile, daemonStopTimeout) {
		spinner.StopWithMessage("Daemon signalled but still running; check " + watchLogFile)
		return nil
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// daemonStopTimeout bounds how long --stop waits for the daemon to exit.
const daemonStopTimeout = 10 * time.Second

// waitForExit polls the PID file until the daemon is gone or timeout passes,
// showing the elapsed wait on the spinner. It reports whether the daemon
// exited.
func waitForExit(spinner *output.Spinner, pidFile string, timeout time.Duration) bool {
	spinner.UpdateMessage("Waiting for daemon to exit")
	deadline := time.Now().Add(timeout)
	for {
		running, err := watcher.IsDaemonRunning(pidFile)
		if err == nil && !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func startWatchDaemon(out io.Writer) error {
	spinner := output.NewSpinner(out, "Starting daemon")
	spinner.Start()
	pid, err := watcher.StartDaemon(daemonChildArgs(os.Args[1:], watchPIDFile, watchLogFile), watchPIDFile, watchLogFile)
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Daemon started (PID %d)", pid))

	fmt.Fprintf(out, "\nWatching VRCX in the background\n")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: vrcnexus watch --stop\n")

	return nil
}

// daemonChildArgs rewrites the parent's arguments for the background child:
// --daemon becomes --daemon-child and the resolved PID and log files are
// passed explicitly.
func daemonChildArgs(args []string, pidFile, logFile string) []string {
	out := make([]string, 0, len(args)+5)
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case arg == "--daemon" || strings.HasPrefix(arg, "--daemon="):
			continue
		case arg == "--pid-file" || arg == "--log-file":
			skipNext = true
			continue
		case strings.HasPrefix(arg, "--pid-file=") || strings.HasPrefix(arg, "--log-file="):
			continue
		}
		out = append(out, arg)
	}
	return append(out, "--daemon-child", "--pid-file", pidFile, "--log-file", logFile)
}
