package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Haor/vrc-nexus/internal/analyzer"
	"github.com/Haor/vrc-nexus/internal/output"
	"github.com/Haor/vrc-nexus/internal/report"
	"github.com/Haor/vrc-nexus/internal/store"
)

// analysis is one completed run over the VRCX database.
type analysis struct {
	Report *report.Report
	Source string
	Stats  store.LoadStats
}

// now is the clock used for the reference day fallback.
var now = time.Now

// runAnalysis reads the configured VRCX database and analyzes it. Progress
// goes to progress.
func runAnalysis(ctx context.Context, progress io.Writer) (*analysis, error) {
	path, err := settings.DatabasePath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("VRCX database not found: %s\nPass --db PATH, or --win to read %%APPDATA%%\\VRCX\\VRCX.sqlite3", path)
		}
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	stages := output.NewStages(progress, "Opening VRCX database", "Reading interaction log", "Analyzing")
	defer stages.Finish()

	stages.Next()
	vrcx, err := store.OpenVRCX(path, settings.Prefix)
	if err != nil {
		if errors.Is(err, store.ErrNoDataset) {
			return nil, fmt.Errorf("%w in %s; is this a VRCX database?", err, path)
		}
		return nil, err
	}
	defer vrcx.Close()

	stages.Next()
	ds, stats, err := vrcx.Load(ctx, now())
	if err != nil {
		return nil, err
	}
	logger.Info("loaded VRCX data",
		"prefix", vrcx.Prefix(), "friends", stats.Friends, "sessions", stats.Sessions,
		"ownerSessions", stats.OwnerSessions, "links", stats.Edges)
	if stats.Skipped > 0 {
		logger.Warn("skipped rows with unreadable timestamps", "count", stats.Skipped)
	}

	stages.Next()
	rep, err := analyzer.New(logger).Run(ctx, ds, settings)
	if err != nil {
		return nil, err
	}

	return &analysis{Report: rep, Source: path, Stats: stats}, nil
}

// openHistory opens the run history. With create set the schema is
// created; otherwise reads on a fresh file report store.ErrNotInitialized.
func openHistory(create bool) (*store.Store, error) {
	path, err := settings.HistoryPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if create {
		if err := st.CreateSchema(); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

// saveRun stores a report and prunes the history to keep runs.
func saveRun(a *analysis, keep int) (string, error) {
	st, err := openHistory(true)
	if err != nil {
		return "", err
	}
	defer st.Close()

	id, err := st.SaveRun(a.Report, a.Source, now())
	if err != nil {
		return "", err
	}
	if keep > 0 {
		removed, err := st.PruneRuns(keep)
		if err != nil {
			return "", err
		}
		if removed > 0 {
			logger.Info("pruned run history", "removed", removed, "kept", keep)
		}
	}
	return id, nil
}
