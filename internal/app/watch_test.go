package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Haor/vrc-nexus/internal/output"
)

func TestWatchCommandFlags(t *testing.T) {
	for _, name := range []string{"daemon", "daemon-child", "pid-file", "log-file", "stop", "debounce", "save", "keep"} {
		if watchCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
	if f := watchCmd.Flags().Lookup("daemon-child"); f != nil && !f.Hidden {
		t.Error("expected --daemon-child to be hidden")
	}
}

func TestDaemonChildArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "replaces daemon flag",
			args: []string{"watch", "--win", "--daemon", "--save"},
			want: []string{"watch", "--win", "--save", "--daemon-child", "--pid-file", "/p", "--log-file", "/l"},
		},
		{
			name: "drops user supplied paths",
			args: []string{"watch", "--daemon=true", "--pid-file", "x.pid", "--log-file=x.log", "--halflife", "90"},
			want: []string{"watch", "--halflife", "90", "--daemon-child", "--pid-file", "/p", "--log-file", "/l"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := daemonChildArgs(tt.args, "/p", "/l")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("daemonChildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatchStop_NotRunning(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "watch", "--stop", "--pid-file", filepath.Join(env.dir, "watch.pid"))
	mustNotErr(t, err, stderr)
	assertContains(t, out, "Daemon is not running")
}

func TestWatchHandler(t *testing.T) {
	env := newTestEnv(t)
	// Resolve settings through a command that returns without watching.
	_, stderr, err := env.run(t, "watch", "--stop", "--pid-file", filepath.Join(env.dir, "watch.pid"))
	mustNotErr(t, err, stderr)

	var out bytes.Buffer
	watchSave = true
	defer func() { watchSave = false }()

	if err := watchHandler(&out)(context.Background()); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	assertContains(t, out.String(), "2024-06-30 22:00:00", "Relationship strength", "Alice")

	if _, err := os.Stat(env.history); err != nil {
		t.Errorf("expected the run to be saved: %v", err)
	}
	if n := len(savedRunIDs(t, env)); n != 1 {
		t.Errorf("expected 1 saved run, got %d", n)
	}
}

func TestWatchHandler_MissingDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.db = filepath.Join(env.dir, "gone.sqlite3")
	_, stderr, err := env.run(t, "watch", "--stop", "--pid-file", filepath.Join(env.dir, "watch.pid"))
	mustNotErr(t, err, stderr)

	err = watchHandler(&bytes.Buffer{})(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected missing database error, got: %v", err)
	}
}

func TestWaitForExit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	spinner := output.NewSpinner(&out, "Stopping daemon")

	if !waitForExit(spinner, filepath.Join(dir, "missing.pid"), time.Second) {
		t.Error("expected a missing PID file to count as exited")
	}

	alive := filepath.Join(dir, "alive.pid")
	if err := os.WriteFile(alive, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if waitForExit(spinner, alive, 300*time.Millisecond) {
		t.Error("expected a live process to time out")
	}
	if time.Since(start) < 300*time.Millisecond {
		t.Error("expected waitForExit to wait for the timeout")
	}
}
