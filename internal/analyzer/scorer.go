package analyzer

import (
	"math"

	"github.com/Haor/vrc-nexus/internal/normalize"
	"github.com/Haor/vrc-nexus/internal/report"
)

// Snapshot is the read-only population state every friend's strength is
// scored against. It is built once per run from the full friend population.
//
// Populations and sentinels:
//   - depth: effective hours of friends with total hours > 0; others score 0 overall
//   - quality: median of hours per interaction over friends with interactions
//   - bond: mutual-friend counts > 0
//   - hidden thresholds: HiddenQuantile of total hours and of meets
type Snapshot struct {
	Depth         *normalize.Population
	QualityMedian float64
	Bond          *normalize.Population
	HoursCutoff   float64
	MeetsCutoff   float64
	Policy        Policy
}

// NewSnapshot collects the strength populations.
func NewSnapshot(friends []Metrics, policy Policy) *Snapshot {
	var depth, quality, bond, hours, meets []float64
	for _, m := range friends {
		s := m.Stats
		if s == nil || s.TotalHours <= 0 {
			continue
		}
		depth = append(depth, m.EffectiveHours)
		hours = append(hours, s.TotalHours)
		meets = append(meets, float64(s.MeetCount))
		if s.InteractionCount > 0 {
			quality = append(quality, s.TotalHours/float64(s.InteractionCount))
		}
		if s.MutualFriendCount > 0 {
			bond = append(bond, float64(s.MutualFriendCount))
		}
	}

	return &Snapshot{
		Depth:         normalize.NewPopulation(depth),
		QualityMedian: normalize.NewPopulation(quality).Median(),
		Bond:          normalize.NewPopulation(bond),
		HoursCutoff:   normalize.NewPopulation(hours).Quantile(policy.HiddenQuantile),
		MeetsCutoff:   normalize.NewPopulation(meets).Quantile(policy.HiddenQuantile),
		Policy:        policy,
	}
}

// Strength is one friend's relationship strength.
type Strength struct {
	Score           float64
	Breakdown       report.StrengthBreakdown
	DepthPercentile float64
	Hidden          bool
}

// Strength scores m against the snapshot.
func (s *Snapshot) Strength(m Metrics) Strength {
	st := m.Stats
	if st == nil || st.TotalHours <= 0 {
		return Strength{}
	}

	var out Strength
	out.DepthPercentile = s.Depth.Rank(m.EffectiveHours)
	out.Breakdown.Depth = out.DepthPercentile * DepthWeight

	if st.InteractionCount > 0 {
		avg := st.TotalHours / float64(st.InteractionCount)
		out.Breakdown.Quality = normalize.Sigmoid(avg, s.QualityMedian) * QualityWeight
	}

	if st.TotalDays > 0 {
		ratio := math.Min(float64(st.ActiveDays)/float64(st.TotalDays), 1)
		out.Breakdown.Stability = math.Sqrt(ratio) * StabilityWeight
	}

	switch {
	case st.MutualFriendCount > 0:
		out.Breakdown.Bond = s.Bond.Rank(float64(st.MutualFriendCount)) * BondWeight
	case st.TotalHours > s.HoursCutoff || float64(st.MeetCount) > s.MeetsCutoff:
		out.Hidden = true
		out.Breakdown.Bond = out.DepthPercentile * BondWeight
	default:
		out.Breakdown.Bond = s.Policy.NeutralBondRatio * BondWeight
	}

	out.Score = out.Breakdown.Total()
	return out
}

// WindowSnapshot is the intimacy population state for one recent window.
// Only friends with recent hours > 0 are ranked; the owner's online hours
// over the same window are the share denominator.
type WindowSnapshot struct {
	Days        int
	Hours       *normalize.Population
	Meets       *normalize.Population
	ShareMedian float64
	OwnerHours  float64
}

// NewWindowSnapshot collects the intimacy populations for one window.
func NewWindowSnapshot(days int, friends []WindowMetrics, ownerHours float64) *WindowSnapshot {
	var hours, meets, shares []float64
	for _, m := range friends {
		if m.Hours <= 0 {
			continue
		}
		hours = append(hours, m.Hours)
		meets = append(meets, float64(m.Meets))
		if ownerHours > 0 {
			shares = append(shares, m.Hours/ownerHours)
		}
	}

	return &WindowSnapshot{
		Days:        days,
		Hours:       normalize.NewPopulation(hours),
		Meets:       normalize.NewPopulation(meets),
		ShareMedian: math.Max(normalize.NewPopulation(shares).Median(), MinShareMedian),
		OwnerHours:  ownerHours,
	}
}

// Intimacy scores m against the window snapshot. Friends without recent
// hours score 0; an owner with no recent online time contributes no share.
func (w *WindowSnapshot) Intimacy(m WindowMetrics) report.WindowIntimacy {
	out := report.WindowIntimacy{Days: w.Days, Hours: m.Hours, Meets: m.Meets}
	if m.Hours <= 0 {
		return out
	}

	out.Breakdown.RecentTime = w.Hours.Rank(m.Hours) * RecentTimeWeight
	out.Breakdown.RecentFreq = w.Meets.Rank(float64(m.Meets)) * RecentFreqWeight
	if w.OwnerHours > 0 {
		out.LifeShare = m.Hours / w.OwnerHours
		out.Breakdown.Share = normalize.Sigmoid(out.LifeShare, w.ShareMedian) * ShareWeight
	}
	out.Score = out.Breakdown.Total()
	return out
}
