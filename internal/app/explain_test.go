package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExplain_MissingArgError(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "explain")
	if err == nil {
		t.Fatal("expected an error when no friend name is provided, got nil")
	}
	if !strings.Contains(err.Error(), "missing friend name") {
		t.Errorf("error message should contain 'missing friend name', got: %q", err.Error())
	}
}

func TestExplain(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "explain", "alice")
	mustNotErr(t, err, stderr)

	assertContains(t, out,
		"Friend:    Alice (usr_a)",
		"Strength breakdown:", "/40 pts", "/25 pts", "/20 pts", "/15 pts",
		"Intimacy breakdown:", "/30 pts",
		"30d:", "60d:", "90d:")
	if strings.Contains(out, "Saved runs:") {
		t.Error("expected no trend without saved runs")
	}
}

func TestExplain_ByUserID(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "explain", "usr_b")
	mustNotErr(t, err, stderr)
	assertContains(t, out, "Friend:    Bob (usr_b)")
}

func TestExplain_Alias(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.dir, "config", "vrcnexus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "aliases"), []byte("# nicknames\ncc = Carol\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, stderr, err := env.run(t, "explain", "CC")
	mustNotErr(t, err, stderr)
	assertContains(t, out, "Friend:    Carol (usr_c)")
}

func TestExplain_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "explain", "Mallory")
	if err == nil || !strings.Contains(err.Error(), "friend not found: Mallory") {
		t.Errorf("expected not found error, got: %v", err)
	}
}

func TestExplain_ShowsSavedRuns(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		_, stderr, err := env.run(t, "analyze", "--save")
		mustNotErr(t, err, stderr)
	}

	out, stderr, err := env.run(t, "explain", "Alice")
	mustNotErr(t, err, stderr)
	assertContains(t, out, "Saved runs:", "2024-06-30")
}
