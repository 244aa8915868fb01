package watcher

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMatcher(t *testing.T) {
	dir := t.TempDir()
	m, err := newMatcher(filepath.Join(dir, "VRCX.sqlite3"))
	if err != nil {
		t.Fatalf("newMatcher() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"database", filepath.Join(dir, "VRCX.sqlite3"), true},
		{"wal", filepath.Join(dir, "VRCX.sqlite3-wal"), true},
		{"journal", filepath.Join(dir, "VRCX.sqlite3-journal"), true},
		{"case insensitive", filepath.Join(dir, "vrcx.SQLITE3-wal"), true},
		{"shared memory index", filepath.Join(dir, "VRCX.sqlite3-shm"), false},
		{"other file", filepath.Join(dir, "config.json"), false},
		{"same name elsewhere", filepath.Join(dir, "backup", "VRCX.sqlite3"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatcher_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}

	realDir := t.TempDir()
	linkDir := filepath.Join(t.TempDir(), "vrcx")
	if err := os.Symlink(realDir, linkDir); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	// Configured through the link, events reported on the real path.
	m, err := newMatcher(filepath.Join(linkDir, "VRCX.sqlite3"))
	if err != nil {
		t.Fatalf("newMatcher() error = %v", err)
	}
	if !m.Matches(filepath.Join(realDir, "VRCX.sqlite3-wal")) {
		t.Error("Matches() should resolve the symlinked directory")
	}
	if !m.Matches(filepath.Join(linkDir, "VRCX.sqlite3")) {
		t.Error("Matches() should accept the path through the link")
	}
}
