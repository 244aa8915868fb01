// Package watcher re-runs the analysis when VRCX writes to its database.
//
// VRCX keeps its SQLite database in WAL mode, so new log rows usually land
// in the -wal file before a checkpoint touches the main file. The Watcher
// watches the database's directory with fsnotify, keeps only events for the
// database, its -wal and its -journal, and calls the handler once the files
// have been quiet for the debounce period.
//
// Key features:
//   - fsnotify directory watch (works across WAL checkpoints and renames)
//   - Debounced, non-overlapping handler runs
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	w, err := watcher.New("VRCX.sqlite3", func(ctx context.Context) error {
//		return analyze(ctx)
//	}, watcher.Options{RunOnStart: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Watch in the foreground until interrupted
//	if err := watcher.RunDaemon(ctx, w, ""); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or start as daemon
//	if _, err := watcher.StartDaemon([]string{"watch", "--daemon-child"}, "/tmp/vrcnexus.pid", "/tmp/vrcnexus.log"); err != nil {
//		log.Fatal(err)
//	}
package watcher
