// Package report assembles per-friend scores, community membership and run
// metadata into the structure consumed by renderers and the run history.
package report

import (
	"sort"
	"strings"
	"time"
)

// StrengthBreakdown holds the relationship strength dimensions. Each is
// bounded by its weight: depth 40, quality 25, stability 20, bond 15.
type StrengthBreakdown struct {
	Depth     float64
	Quality   float64
	Stability float64
	Bond      float64
}

// Total sums the dimensions.
func (b StrengthBreakdown) Total() float64 {
	return b.Depth + b.Quality + b.Stability + b.Bond
}

// IntimacyBreakdown holds the recent intimacy dimensions. Each is bounded by
// its weight: recent time 40, recent frequency 30, share 30.
type IntimacyBreakdown struct {
	RecentTime float64
	RecentFreq float64
	Share      float64
}

// Total sums the dimensions.
func (b IntimacyBreakdown) Total() float64 {
	return b.RecentTime + b.RecentFreq + b.Share
}

// WindowIntimacy is recent intimacy computed over one fixed window.
type WindowIntimacy struct {
	Days      int
	Hours     float64
	Meets     int
	LifeShare float64
	Score     float64
	Breakdown IntimacyBreakdown
}

// Record is everything reported for one friend.
type Record struct {
	FriendID    string
	DisplayName string

	RelationshipStrength float64
	RecentIntimacy       float64
	Windows              []WindowIntimacy // fixed 30/60/90 day windows
	StrengthBreakdown    StrengthBreakdown
	IntimacyBreakdown    IntimacyBreakdown
	Hidden               bool

	TotalHours        float64
	EffectiveHours    float64
	RetentionRate     float64
	DepthPercentile   float64
	AvgSessionHours   float64
	InteractionCount  int
	MeetCount         int
	ActiveDays        int
	MutualFriendCount int

	RecentHours float64
	RecentMeets int
	LifeShare   float64
	Hours7d     float64
	Hours30d    float64
	Meets7d     int
	Meets30d    int
	DaysKnown   int
	FirstSeen   time.Time
	LastSeen    time.Time

	// Community is nil for friends without mutual-friend links.
	Community *int

	StrengthRank int
	IntimacyRank int
}

// Name returns the display name, falling back to the id.
func (r *Record) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.FriendID
}

// IntimacyOver returns the fixed-window intimacy for days, if computed.
func (r *Record) IntimacyOver(days int) (WindowIntimacy, bool) {
	for _, w := range r.Windows {
		if w.Days == days {
			return w, true
		}
	}
	return WindowIntimacy{}, false
}

// Meta is the global metadata of one analysis.
type Meta struct {
	OwnerID          string
	Reference        time.Time
	ActivityFactor   float64
	OwnerActiveDays  int
	TotalDays        int
	HalfLifeDays     float64
	HalfLifeAuto     bool
	RecentWindowDays int
	RecentAuto       bool
	OwnerRecentHours float64

	Algorithm      string
	Resolution     float64
	Modularity     float64
	CommunityCount int
	Seed           int64
	GraphNodes     int
	GraphEdges     int

	FriendCount int
	ScoredCount int
	Malformed   int
	// Empty is set when no friend has recorded time; every score is zero.
	Empty bool
}

// Community is one detected community.
type Community struct {
	ID      int
	Members []string // friend ids, ascending
}

// Report is the assembled analysis result.
type Report struct {
	Records     []Record // strength rank order
	Meta        Meta
	Communities []Community
}

// Metric names a sortable record score.
type Metric string

const (
	MetricStrength       Metric = "strength"
	MetricIntimacy       Metric = "intimacy"
	MetricIntimacy30     Metric = "intimacy30"
	MetricIntimacy60     Metric = "intimacy60"
	MetricIntimacy90     Metric = "intimacy90"
	MetricEffectiveHours Metric = "effective"
	MetricTotalHours     Metric = "hours"
)

// Value returns the record's value for m.
func (m Metric) Value(r *Record) float64 {
	switch m {
	case MetricIntimacy:
		return r.RecentIntimacy
	case MetricIntimacy30, MetricIntimacy60, MetricIntimacy90:
		days := map[Metric]int{MetricIntimacy30: 30, MetricIntimacy60: 60, MetricIntimacy90: 90}[m]
		w, _ := r.IntimacyOver(days)
		return w.Score
	case MetricEffectiveHours:
		return r.EffectiveHours
	case MetricTotalHours:
		return r.TotalHours
	default:
		return r.RelationshipStrength
	}
}

// Assemble attaches community ids from partition, ranks records by strength
// and by intimacy and lists communities. Records are copied; ties in every
// ordering are broken by friend id.
func Assemble(records []Record, partition map[string]int, communities [][]string, meta Meta) *Report {
	out := make([]Record, len(records))
	copy(out, records)

	for i := range out {
		if c, ok := partition[out[i].FriendID]; ok {
			out[i].Community = &c
		} else {
			out[i].Community = nil
		}
	}

	sortBy(out, MetricIntimacy)
	for i := range out {
		out[i].IntimacyRank = i + 1
	}
	sortBy(out, MetricStrength)
	for i := range out {
		out[i].StrengthRank = i + 1
	}

	rep := &Report{Records: out, Meta: meta}
	for id, members := range communities {
		m := append([]string(nil), members...)
		sort.Strings(m)
		rep.Communities = append(rep.Communities, Community{ID: id, Members: m})
	}
	rep.Meta.CommunityCount = len(rep.Communities)
	rep.Meta.FriendCount = len(out)
	return rep
}

func sortBy(records []Record, m Metric) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := m.Value(&records[i]), m.Value(&records[j])
		if a != b {
			return a > b
		}
		return records[i].FriendID < records[j].FriendID
	})
}

// TopBy returns up to n records ordered by m, highest first. n <= 0 returns all.
func (r *Report) TopBy(m Metric, n int) []Record {
	out := make([]Record, len(r.Records))
	copy(out, r.Records)
	sortBy(out, m)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// RetentionExtremes returns the friends with more than minHours on record
// whose retention is lowest (fading relationships) and highest (fresh ones),
// up to n each.
func (r *Report) RetentionExtremes(minHours float64, n int) (fading, fresh []Record) {
	if n < 0 {
		n = 0
	}
	var pool []Record
	for _, rec := range r.Records {
		if rec.TotalHours > minHours {
			pool = append(pool, rec)
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].RetentionRate != pool[j].RetentionRate {
			return pool[i].RetentionRate < pool[j].RetentionRate
		}
		return pool[i].FriendID < pool[j].FriendID
	})
	fading = append(fading, pool[:min(n, len(pool))]...)

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].RetentionRate != pool[j].RetentionRate {
			return pool[i].RetentionRate > pool[j].RetentionRate
		}
		return pool[i].FriendID < pool[j].FriendID
	})
	fresh = append(fresh, pool[:min(n, len(pool))]...)
	return fading, fresh
}

// Hidden returns hidden-list friends ordered by total hours.
func (r *Report) Hidden() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Hidden {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalHours != out[j].TotalHours {
			return out[i].TotalHours > out[j].TotalHours
		}
		return out[i].FriendID < out[j].FriendID
	})
	return out
}

// Find looks a friend up by id, then by case-insensitive display name.
func (r *Report) Find(query string) (*Record, bool) {
	for i := range r.Records {
		if r.Records[i].FriendID == query {
			return &r.Records[i], true
		}
	}
	for i := range r.Records {
		if strings.EqualFold(r.Records[i].DisplayName, query) {
			return &r.Records[i], true
		}
	}
	return nil, false
}

// Members returns the records of one community in strength order.
func (r *Report) Members(community int) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Community != nil && *rec.Community == community {
			out = append(out, rec)
		}
	}
	return out
}
