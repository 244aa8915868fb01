// Package decay implements the forgetting model: an owner activity profile
// drives an adaptive half-life and recent window, and each friend's daily
// hours are discounted exponentially by age.
//
// Decay algorithm:
//   - weight(daysAgo) = 2^(-daysAgo / halfLife)
//   - halfLife = 90 × (2 - activity), 90 days for a daily player, 180 for a rare one
//   - recentWindow = 30 + (1 - activity) × 30, truncated to whole days
//   - parameters are computed once per owner and applied to every friend
package decay

import (
	"math"

	"github.com/Haor/vrc-nexus/internal/interaction"
)

const (
	// BaseHalfLifeDays is the half-life of a fully active owner.
	BaseHalfLifeDays = 90.0
	// BaseRecentWindowDays is the recent window of a fully active owner.
	BaseRecentWindowDays = 30
)

// ActivityProfile describes how often the owning user is online.
type ActivityProfile struct {
	ActiveDays     int
	TotalDays      int
	ActivityFactor float64 // ActiveDays / TotalDays, clamped to [0, 1]
}

// Parameters are the decay settings applied uniformly to one owner's friends.
type Parameters struct {
	HalfLifeDays     float64
	RecentWindowDays int
	HalfLifeAuto     bool
	RecentAuto       bool
}

// Profile builds an activity profile. A zero observation span yields a zero
// activity factor.
func Profile(activeDays, totalDays int) ActivityProfile {
	p := ActivityProfile{ActiveDays: activeDays, TotalDays: totalDays}
	if totalDays <= 0 || activeDays <= 0 {
		return p
	}
	p.ActivityFactor = math.Min(float64(activeDays)/float64(totalDays), 1)
	return p
}

// AdaptiveHalfLife returns 90 × (2 - activity), in [90, 180].
func AdaptiveHalfLife(activity float64) float64 {
	return BaseHalfLifeDays * (2 - clamp01(activity))
}

// AdaptiveRecentWindow returns 30 + (1 - activity) × 30 truncated, in [30, 60].
func AdaptiveRecentWindow(activity float64) int {
	return BaseRecentWindowDays + int((1-clamp01(activity))*BaseRecentWindowDays)
}

// Adaptive derives both parameters from the profile.
func Adaptive(p ActivityProfile) Parameters {
	return Parameters{
		HalfLifeDays:     AdaptiveHalfLife(p.ActivityFactor),
		RecentWindowDays: AdaptiveRecentWindow(p.ActivityFactor),
		HalfLifeAuto:     true,
		RecentAuto:       true,
	}
}

// Resolve applies manual overrides on top of the adaptive parameters.
// A zero halfLife or recentWindow selects the adaptive value.
func Resolve(p ActivityProfile, halfLife float64, recentWindow int) Parameters {
	params := Adaptive(p)
	if halfLife > 0 {
		params.HalfLifeDays = halfLife
		params.HalfLifeAuto = false
	}
	if recentWindow > 0 {
		params.RecentWindowDays = recentWindow
		params.RecentAuto = false
	}
	return params
}

// Weight returns the decay multiplier for an interaction daysAgo days old.
// Future days count as today; a non-positive half-life disables decay.
func Weight(daysAgo, halfLife float64) float64 {
	if halfLife <= 0 {
		return 1
	}
	if daysAgo < 0 {
		daysAgo = 0
	}
	return math.Pow(2, -daysAgo/halfLife)
}

// EffectiveHours sums the friend's daily hours discounted by age relative to ref.
func EffectiveHours(stats *interaction.FriendStats, ref interaction.Day, halfLife float64) float64 {
	effective := 0.0
	for _, day := range stats.Days() {
		effective += stats.DailyHours[day] * Weight(float64(ref.Since(day)), halfLife)
	}
	return effective
}

// Retention is effective / total, or 0 when nothing was recorded.
func Retention(effective, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return effective / total
}

// Window sums hours and meetings on days within [ref-windowDays, ref].
func Window(stats *interaction.FriendStats, ref interaction.Day, windowDays int) (hours float64, meets int) {
	from := ref.AddDays(-windowDays)
	for _, day := range stats.Days() {
		if day >= from && day <= ref {
			hours += stats.DailyHours[day]
			meets += stats.DailyMeets[day]
		}
	}
	return hours, meets
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
