package app

import (
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "analyze")
	mustNotErr(t, err, stderr)

	assertContains(t, out,
		"Half-life:", "(auto)",
		"Relationship strength (top 25)",
		"Recent intimacy (top 25, by intimacy)",
		"Alice", "Bob", "Carol", "Dave",
		"Fading", "Fresh", "Group")

	strength := out[strings.Index(out, "Relationship strength"):strings.Index(out, "Recent intimacy")]
	if strings.Index(strength, "Alice") > strings.Index(strength, "Bob") {
		t.Errorf("expected Alice to rank above Bob\nGot:\n%s", strength)
	}
	if strings.Contains(out, "Saved run") {
		t.Error("expected no run to be saved without --save")
	}
}

func TestAnalyze_FixedParameters(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "analyze", "--halflife", "90", "--recent", "30", "--algorithm", "louvain", "--top", "2", "--sort", "intimacy60")
	mustNotErr(t, err, stderr)

	assertContains(t, out, "Half-life: 90d ·", "Recent: 30d ·", "louvain", "(top 2, by intimacy60)")
	if strings.Contains(out, "(auto)") {
		t.Errorf("expected fixed parameters not to be marked auto\nGot:\n%s", out)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	first, stderr, err := env.run(t, "analyze", "--seed", "7")
	mustNotErr(t, err, stderr)
	second, stderr, err := env.run(t, "analyze", "--seed", "7")
	mustNotErr(t, err, stderr)

	if first != second {
		t.Errorf("expected identical output for the same seed\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestAnalyze_InvalidSort(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "analyze", "--sort", "popularity")
	if err == nil || !strings.Contains(err.Error(), "invalid --sort") {
		t.Errorf("expected invalid --sort error, got: %v", err)
	}
}

func TestAnalyze_MissingDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.db = env.dir + "/nope.sqlite3"
	_, _, err := env.run(t, "analyze")
	if err == nil || !strings.Contains(err.Error(), "VRCX database not found") {
		t.Errorf("expected missing database error, got: %v", err)
	}
}

func TestAnalyze_SaveAndHistory(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "analyze", "--save")
	mustNotErr(t, err, stderr)
	assertContains(t, out, "✓ Saved run")

	out, stderr, err = env.run(t, "history")
	mustNotErr(t, err, stderr)
	assertContains(t, out, "2024-06-30", "ID")
}

func TestParseIntimacyMetric(t *testing.T) {
	for _, s := range []string{"intimacy", "intimacy30", "Intimacy60", " intimacy90 "} {
		if _, err := parseIntimacyMetric(s); err != nil {
			t.Errorf("parseIntimacyMetric(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := parseIntimacyMetric("strength"); err == nil {
		t.Error("expected strength to be rejected as an intimacy ranking")
	}
}
