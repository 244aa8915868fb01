package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Haor/vrc-nexus/internal/analyzer"
	"github.com/Haor/vrc-nexus/internal/community"
	"github.com/Haor/vrc-nexus/internal/interaction"
)

// Per-user VRCX table suffixes.
const (
	friendTableSuffix = "_friend_log_current"
	linksTableSuffix  = "_mutual_graph_links"
	nodesTableSuffix  = "_mutual_graph_friends"
)

var (
	// ErrNoDataset is returned when no per-user VRCX tables exist.
	ErrNoDataset = errors.New("no VRCX friend tables found")
	// ErrAmbiguousPrefix is returned when several users share one database.
	ErrAmbiguousPrefix = errors.New("multiple VRCX users found; pass --prefix")
)

// VRCX reads a VRCX database without modifying it.
type VRCX struct {
	db      *sql.DB
	path    string
	prefix  string
	ownerID string
}

// OpenVRCX opens the database at path read-only and resolves the per-user
// table prefix. An empty prefix is detected from the schema.
func OpenVRCX(path, prefix string) (*VRCX, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	dsn := (&url.URL{Scheme: "file", Path: slashed, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open VRCX database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open VRCX database %s: %w", path, err)
	}

	resolved, err := DetectPrefix(db, prefix)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &VRCX{db: db, path: path, prefix: resolved, ownerID: OwnerIDFromPrefix(resolved)}, nil
}

// Close closes the database connection.
func (v *VRCX) Close() error {
	return v.db.Close()
}

// Path returns the database path.
func (v *VRCX) Path() string { return v.path }

// Prefix returns the per-user table prefix.
func (v *VRCX) Prefix() string { return v.prefix }

// OwnerID returns the owner's user id derived from the prefix, or "".
func (v *VRCX) OwnerID() string { return v.ownerID }

// DetectPrefix returns the per-user table prefix. An explicit prefix may be
// given with or without a table suffix. Otherwise exactly one user's
// friend table must exist.
func DetectPrefix(db *sql.DB, explicit string) (string, error) {
	if explicit != "" {
		for _, suffix := range []string{friendTableSuffix, linksTableSuffix, nodesTableSuffix} {
			explicit = strings.TrimSuffix(explicit, suffix)
		}
		if err := checkIdent(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("failed to scan table name: %w", err)
		}
		if strings.HasSuffix(name, friendTableSuffix) {
			found[strings.TrimSuffix(name, friendTableSuffix)] = true
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	prefixes := make([]string, 0, len(found))
	for p := range found {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	switch len(prefixes) {
	case 0:
		return "", ErrNoDataset
	case 1:
		return prefixes[0], checkIdent(prefixes[0])
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousPrefix, strings.Join(prefixes, ", "))
	}
}

// OwnerIDFromPrefix turns "usr" + 32 hex digits back into a dashed user id.
// Other prefixes yield "".
func OwnerIDFromPrefix(prefix string) string {
	raw := strings.TrimPrefix(prefix, "usr")
	if raw == prefix || len(raw) != 32 {
		return ""
	}
	return fmt.Sprintf("usr_%s-%s-%s-%s-%s", raw[:8], raw[8:12], raw[12:16], raw[16:20], raw[20:])
}

// checkIdent rejects table names that cannot be safely interpolated.
func checkIdent(name string) error {
	if name == "" {
		return fmt.Errorf("unsafe table prefix %q", name)
	}
	for _, c := range name {
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return fmt.Errorf("unsafe table prefix %q", name)
		}
	}
	return nil
}

// Friends returns the current friend list ordered by id, skipping the
// placeholder id.
func (v *VRCX) Friends(ctx context.Context) ([]analyzer.Friend, error) {
	rows, err := v.db.QueryContext(ctx, fmt.Sprintf("SELECT user_id, display_name FROM %s%s ORDER BY user_id", v.prefix, friendTableSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	defer rows.Close()

	var friends []analyzer.Friend
	for rows.Next() {
		var id, name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		if id.String == "" || id.String == analyzer.PlaceholderUserID {
			continue
		}
		friends = append(friends, analyzer.Friend{ID: id.String, DisplayName: name.String})
	}
	return friends, rows.Err()
}

// Edges returns the mutual-friend links. A database without the links table
// yields no edges.
func (v *VRCX) Edges(ctx context.Context) ([]community.Edge, error) {
	rows, err := v.db.QueryContext(ctx, fmt.Sprintf("SELECT friend_id, mutual_id FROM %s%s", v.prefix, linksTableSuffix))
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load mutual links: %w", err)
	}
	defer rows.Close()

	var edges []community.Edge
	for rows.Next() {
		var a, b sql.NullString
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("failed to scan mutual link: %w", err)
		}
		if a.String == "" || b.String == "" {
			continue
		}
		edges = append(edges, community.Edge{Source: a.String, Target: b.String})
	}
	return edges, rows.Err()
}

// Sessions returns one session per OnPlayerLeft event. VRCX records the
// leave time and the time spent together in milliseconds, so the enter time
// is the leave time minus the duration. Rows with unparseable timestamps are
// skipped and counted.
func (v *VRCX) Sessions(ctx context.Context) ([]interaction.Session, int, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT user_id, created_at, time
		FROM gamelog_join_leave
		WHERE type = 'OnPlayerLeft' AND user_id IS NOT NULL AND user_id != ''
		ORDER BY created_at
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load join/leave log: %w", err)
	}
	defer rows.Close()

	var sessions []interaction.Session
	skipped := 0
	for rows.Next() {
		var id, createdAt sql.NullString
		var ms sql.NullInt64
		if err := rows.Scan(&id, &createdAt, &ms); err != nil {
			return nil, 0, fmt.Errorf("failed to scan join/leave row: %w", err)
		}
		exit, err := ParseTimestamp(createdAt.String)
		if err != nil {
			skipped++
			continue
		}
		enter := exit.Add(-time.Duration(ms.Int64) * time.Millisecond)
		sessions = append(sessions, interaction.Session{FriendID: id.String, Enter: enter, Exit: exit})
	}
	return sessions, skipped, rows.Err()
}

// OwnerSessions returns the owner's instance visits from gamelog_location,
// which records the arrival time and the time spent in milliseconds.
func (v *VRCX) OwnerSessions(ctx context.Context) ([]interaction.Session, error) {
	rows, err := v.db.QueryContext(ctx, "SELECT created_at, time FROM gamelog_location ORDER BY created_at")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load location log: %w", err)
	}
	defer rows.Close()

	var sessions []interaction.Session
	for rows.Next() {
		var createdAt sql.NullString
		var ms sql.NullInt64
		if err := rows.Scan(&createdAt, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		enter, err := ParseTimestamp(createdAt.String)
		if err != nil || ms.Int64 <= 0 {
			continue
		}
		sessions = append(sessions, interaction.Session{
			FriendID: v.ownerID,
			Enter:    enter,
			Exit:     enter.Add(time.Duration(ms.Int64) * time.Millisecond),
		})
	}
	return sessions, rows.Err()
}

// Reference returns the latest join/leave timestamp, or now when the log is
// empty.
func (v *VRCX) Reference(ctx context.Context, now time.Time) (time.Time, error) {
	var latest sql.NullString
	err := v.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM gamelog_join_leave").Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest event: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return now, nil
	}
	t, err := ParseTimestamp(latest.String)
	if err != nil {
		return now, nil
	}
	return t, nil
}

// LoadStats describes what Load read.
type LoadStats struct {
	Friends       int
	Sessions      int
	OwnerSessions int
	Edges         int
	Skipped       int
}

// Load reads everything an analysis needs.
func (v *VRCX) Load(ctx context.Context, now time.Time) (analyzer.Dataset, LoadStats, error) {
	var (
		ds    analyzer.Dataset
		stats LoadStats
		err   error
	)
	ds.OwnerID = v.ownerID

	if ds.Friends, err = v.Friends(ctx); err != nil {
		return ds, stats, err
	}
	if ds.Edges, err = v.Edges(ctx); err != nil {
		return ds, stats, err
	}
	if ds.Sessions, stats.Skipped, err = v.Sessions(ctx); err != nil {
		return ds, stats, err
	}
	if ds.OwnerSessions, err = v.OwnerSessions(ctx); err != nil {
		return ds, stats, err
	}
	if ds.Reference, err = v.Reference(ctx, now); err != nil {
		return ds, stats, err
	}

	stats.Friends = len(ds.Friends)
	stats.Sessions = len(ds.Sessions)
	stats.OwnerSessions = len(ds.OwnerSessions)
	stats.Edges = len(ds.Edges)
	return ds, stats, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the ISO-8601 variants VRCX and SQLite write.
// Timestamps without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
