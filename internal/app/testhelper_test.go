package app

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Haor/vrc-nexus/internal/config"
)

const testPrefix = "usr0123456789abcdef0123456789abcdef"

var testNow = time.Date(2024, 6, 30, 22, 0, 0, 0, time.UTC)

// testEnv isolates one command invocation: a temp home and config
// directory, a fresh viper instance and flags back at their defaults.
type testEnv struct {
	dir     string
	db      string
	history string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NO_COLOR", "1")
	t.Setenv("VRCNEXUS_TIMEZONE", "UTC")

	oldV, oldNow, oldSettings := v, now, settings
	v = config.New()
	now = func() time.Time { return testNow }
	t.Cleanup(func() {
		v, now, settings = oldV, oldNow, oldSettings
		resetFlags(RootCmd)
	})
	resetFlags(RootCmd)

	return &testEnv{
		dir:     dir,
		db:      writeVRCX(t, dir),
		history: filepath.Join(dir, "history.db"),
	}
}

// resetFlags restores every flag of cmd and its subcommands to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args plus the env's database and
// history paths.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(append(args, "--db", e.db, "--history", e.history))
	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeVRCX creates a small VRCX database: four friends who played together
// over the last two months, with two mutual-friend triangles.
func writeVRCX(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "VRCX.sqlite3")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to create VRCX database: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE gamelog_join_leave (id INTEGER PRIMARY KEY, created_at TEXT, type TEXT, display_name TEXT, location TEXT, user_id TEXT, time INTEGER)`,
		`CREATE TABLE gamelog_location (id INTEGER PRIMARY KEY, created_at TEXT, location TEXT, world_id TEXT, world_name TEXT, time INTEGER, group_name TEXT)`,
		`CREATE TABLE ` + testPrefix + `_friend_log_current (user_id TEXT PRIMARY KEY, display_name TEXT, trust_level TEXT)`,
		`CREATE TABLE ` + testPrefix + `_mutual_graph_links (friend_id TEXT, mutual_id TEXT)`,
		`INSERT INTO ` + testPrefix + `_friend_log_current VALUES
			('usr_a', 'Alice', 'Trusted'), ('usr_b', 'Bob', 'Known'),
			('usr_c', 'Carol', 'User'), ('usr_d', 'Dave', 'User'), ('usr_e', 'Eve', 'User')`,
		`INSERT INTO ` + testPrefix + `_mutual_graph_links VALUES
			('usr_a', 'usr_b'), ('usr_b', 'usr_e'), ('usr_a', 'usr_e'),
			('usr_c', 'usr_d'), ('usr_d', 'usr_x'), ('usr_c', 'usr_x'), ('usr_b', 'usr_c')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("failed to build VRCX database: %v", err)
		}
	}

	leave := func(id string, at time.Time, d time.Duration) {
		if _, err := db.Exec(`INSERT INTO gamelog_join_leave (created_at, type, user_id, time) VALUES (?, 'OnPlayerLeft', ?, ?)`,
			at.Format(time.RFC3339), id, d.Milliseconds()); err != nil {
			t.Fatalf("failed to insert session: %v", err)
		}
	}
	for day := 0; day < 60; day++ {
		end := time.Date(2024, 6, 30, 21, 0, 0, 0, time.UTC).AddDate(0, 0, -day)
		if _, err := db.Exec(`INSERT INTO gamelog_location (created_at, time) VALUES (?, ?)`,
			end.Add(-4*time.Hour).Format(time.RFC3339), (4 * time.Hour).Milliseconds()); err != nil {
			t.Fatalf("failed to insert location: %v", err)
		}
		leave("usr_a", end, 3*time.Hour)
		if day%2 == 0 {
			leave("usr_b", end, time.Hour)
		}
		if day%5 == 0 {
			leave("usr_c", end, 30*time.Minute)
		}
		if day > 40 {
			leave("usr_d", end, 2*time.Hour)
		}
	}
	return path
}

func assertContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("missing expected string %q\nGot:\n%s", w, got)
		}
	}
}

func mustNotErr(t *testing.T, err error, stderr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr:\n%s", err, stderr)
	}
}
