package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haor/vrc-nexus/internal/report"
)

// Run history operations

// SaveRun stores a report and every friend's scores in one transaction and
// returns the new run id.
func (s *Store) SaveRun(rep *report.Report, sourcePath string, createdAt time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m := rep.Meta
	_, err = tx.Exec(`
		INSERT INTO runs
		(id, created_at, source_path, owner_id, reference_day, algorithm, half_life, recent_window,
		 activity_factor, resolution, modularity, community_count, friend_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		createdAt.UTC().Format(time.RFC3339),
		sourcePath,
		m.OwnerID,
		m.Reference.Format("2006-01-02"),
		m.Algorithm,
		m.HalfLifeDays,
		m.RecentWindowDays,
		m.ActivityFactor,
		m.Resolution,
		m.Modularity,
		m.CommunityCount,
		m.FriendCount,
	)
	if err != nil {
		return "", wrapMissing(err, "failed to insert run")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_scores
		(run_id, friend_id, display_name, strength, intimacy, effective_hours, total_hours, community, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rep.Records {
		var community sql.NullInt64
		if r.Community != nil {
			community = sql.NullInt64{Int64: int64(*r.Community), Valid: true}
		}
		if _, err := stmt.Exec(id, r.FriendID, r.DisplayName, r.RelationshipStrength, r.RecentIntimacy,
			r.EffectiveHours, r.TotalHours, community, r.Hidden); err != nil {
			return "", fmt.Errorf("failed to insert score for %s: %w", r.FriendID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns saved runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, source_path, owner_id, reference_day, algorithm, half_life, recent_window,
		       activity_factor, resolution, modularity, community_count, friend_count
		FROM runs
		ORDER BY created_at DESC, id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapMissing(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, source_path, owner_id, reference_day, algorithm, half_life, recent_window,
		       activity_factor, resolution, modularity, community_count, friend_count
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, wrapMissing(err, "failed to get run "+id)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var createdAt string
	var source, owner, refDay, algo sql.NullString
	err := row.Scan(
		&run.ID,
		&createdAt,
		&source,
		&owner,
		&refDay,
		&algo,
		&run.HalfLife,
		&run.RecentWindow,
		&run.ActivityFactor,
		&run.Resolution,
		&run.Modularity,
		&run.CommunityCount,
		&run.FriendCount,
	)
	if err != nil {
		return nil, err
	}
	run.SourcePath = source.String
	run.OwnerID = owner.String
	run.ReferenceDay = refDay.String
	run.Algorithm = algo.String

	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}
	return &run, nil
}

// GetRunScores returns a run's scores in strength order.
func (s *Store) GetRunScores(runID string) ([]RunScore, error) {
	rows, err := s.db.Query(`
		SELECT run_id, friend_id, display_name, strength, intimacy, effective_hours, total_hours, community, hidden
		FROM run_scores
		WHERE run_id = ?
		ORDER BY strength DESC, friend_id
	`, runID)
	if err != nil {
		return nil, wrapMissing(err, "failed to get run scores")
	}
	defer rows.Close()

	var scores []RunScore
	for rows.Next() {
		var sc RunScore
		var name sql.NullString
		var community sql.NullInt64
		if err := rows.Scan(&sc.RunID, &sc.FriendID, &name, &sc.Strength, &sc.Intimacy,
			&sc.EffectiveHours, &sc.TotalHours, &community, &sc.Hidden); err != nil {
			return nil, fmt.Errorf("failed to scan run score: %w", err)
		}
		sc.DisplayName = name.String
		if community.Valid {
			c := int(community.Int64)
			sc.Community = &c
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// FriendTrend returns a friend's scores across saved runs, oldest first.
func (s *Store) FriendTrend(friendID string, limit int) ([]TrendPoint, error) {
	query := `
		SELECT r.id, r.created_at, sc.strength, sc.intimacy
		FROM run_scores sc
		JOIN runs r ON r.id = sc.run_id
		WHERE sc.friend_id = ?
		ORDER BY r.created_at DESC, r.id
	`
	args := []interface{}{friendID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapMissing(err, "failed to get friend trend")
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		var createdAt string
		if err := rows.Scan(&p.RunID, &createdAt, &p.Strength, &p.Intimacy); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse trend timestamp: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed. Scores cascade.
func (s *Store) PruneRuns(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM runs
		WHERE id NOT IN (SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?)
	`, keep)
	if err != nil {
		return 0, wrapMissing(err, "failed to prune runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return int(n), nil
}
