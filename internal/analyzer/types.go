package analyzer

import (
	"time"

	"github.com/Haor/vrc-nexus/internal/community"
	"github.com/Haor/vrc-nexus/internal/interaction"
)

// Strength and intimacy dimension weights. Each dimension score lies in
// [0, weight], so both composites lie in [0, 100].
const (
	DepthWeight     = 40.0
	QualityWeight   = 25.0
	StabilityWeight = 20.0
	BondWeight      = 15.0

	RecentTimeWeight = 40.0
	RecentFreqWeight = 30.0
	ShareWeight      = 30.0
)

// MinShareMedian floors the share sigmoid center.
const MinShareMedian = 0.01

// FixedWindows are the supplementary intimacy windows, in days.
var FixedWindows = []int{30, 60, 90}

// PlaceholderUserID is the all-zero id VRCX records for unresolved players.
const PlaceholderUserID = "usr_00000000-0000-0000-0000-000000000000"

// Friend is one entry of the owner's friend list.
type Friend struct {
	ID          string
	DisplayName string
}

// Dataset is the in-memory input of one analysis.
type Dataset struct {
	OwnerID       string
	Reference     time.Time // zero means the last observed day
	Friends       []Friend
	Sessions      []interaction.Session // time spent with friends
	OwnerSessions []interaction.Session // the owner's own online time
	Edges         []community.Edge      // mutual-friend links
}

// Policy holds the hidden-friend thresholds.
type Policy struct {
	// HiddenQuantile is the population quantile a friend without mutual
	// links must exceed in total hours or meets to count as hidden.
	HiddenQuantile float64
	// NeutralBondRatio is the share of the bond weight given to friends
	// without mutual links who are not hidden.
	NeutralBondRatio float64
}

// DefaultPolicy returns the P70 / 50% policy.
func DefaultPolicy() Policy {
	return Policy{HiddenQuantile: 0.7, NeutralBondRatio: 0.5}
}

// Metrics are the per-friend inputs to strength scoring.
type Metrics struct {
	Stats          *interaction.FriendStats
	EffectiveHours float64
}

// WindowMetrics are the per-friend inputs to intimacy scoring for one window.
type WindowMetrics struct {
	Hours float64
	Meets int
}
