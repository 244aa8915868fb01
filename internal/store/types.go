package store

import "time"

// Run is one saved analysis.
type Run struct {
	ID             string
	CreatedAt      time.Time
	SourcePath     string
	OwnerID        string
	ReferenceDay   string
	Algorithm      string
	HalfLife       float64
	RecentWindow   int
	ActivityFactor float64
	Resolution     float64
	Modularity     float64
	CommunityCount int
	FriendCount    int
}

// RunScore is one friend's scores within a saved run.
type RunScore struct {
	RunID          string
	FriendID       string
	DisplayName    string
	Strength       float64
	Intimacy       float64
	EffectiveHours float64
	TotalHours     float64
	Community      *int
	Hidden         bool
}

// TrendPoint is a friend's scores at one saved run.
type TrendPoint struct {
	RunID     string
	CreatedAt time.Time
	Strength  float64
	Intimacy  float64
}
