package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    source_path TEXT,
    owner_id TEXT,
    reference_day TEXT,
    algorithm TEXT,
    half_life REAL,
    recent_window INTEGER,
    activity_factor REAL,
    resolution REAL,
    modularity REAL,
    community_count INTEGER,
    friend_count INTEGER
);

CREATE TABLE IF NOT EXISTS run_scores (
    run_id TEXT NOT NULL,
    friend_id TEXT NOT NULL,
    display_name TEXT,
    strength REAL NOT NULL,
    intimacy REAL NOT NULL,
    effective_hours REAL,
    total_hours REAL,
    community INTEGER,
    hidden BOOLEAN,
    PRIMARY KEY (run_id, friend_id),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_scores_friend ON run_scores(friend_id);
`
