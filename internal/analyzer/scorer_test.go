package analyzer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haor/vrc-nexus/internal/interaction"
)

func friend(hours float64, interactions, meets, active, total, mutual int) *interaction.FriendStats {
	return &interaction.FriendStats{
		TotalHours:        hours,
		InteractionCount:  interactions,
		MeetCount:         meets,
		ActiveDays:        active,
		TotalDays:         total,
		MutualFriendCount: mutual,
	}
}

func TestStrength_HiddenFriendFallback(t *testing.T) {
	friends := []Metrics{
		{Stats: friend(5, 5, 5, 5, 100, 3), EffectiveHours: 4},
		{Stats: friend(8, 8, 8, 8, 100, 2), EffectiveHours: 6},
		{Stats: friend(10, 10, 10, 10, 100, 5), EffectiveHours: 9},
		{Stats: friend(12, 12, 12, 12, 100, 1), EffectiveHours: 10},
		{Stats: friend(300, 60, 60, 60, 100, 0), EffectiveHours: 200}, // hidden
		{Stats: friend(2, 2, 2, 2, 100, 0), EffectiveHours: 1},         // neutral
	}
	snap := NewSnapshot(friends, DefaultPolicy())

	hidden := snap.Strength(friends[4])
	assert.True(t, hidden.Hidden)
	assert.NotZero(t, hidden.Breakdown.Bond)
	assert.InDelta(t, hidden.DepthPercentile*BondWeight, hidden.Breakdown.Bond, 1e-12)
	assert.InDelta(t, snap.Depth.Rank(200)*BondWeight, hidden.Breakdown.Bond, 1e-12)

	neutral := snap.Strength(friends[5])
	assert.False(t, neutral.Hidden)
	assert.InDelta(t, 0.5*BondWeight, neutral.Breakdown.Bond, 1e-12)

	linked := snap.Strength(friends[2])
	assert.False(t, linked.Hidden)
	assert.InDelta(t, snap.Bond.Rank(5)*BondWeight, linked.Breakdown.Bond, 1e-12)
	assert.Equal(t, 4, snap.Bond.Len())
}

func TestStrength_HiddenByMeetsAlone(t *testing.T) {
	friends := []Metrics{
		{Stats: friend(10, 2, 2, 2, 30, 1), EffectiveHours: 10},
		{Stats: friend(10, 2, 2, 2, 30, 1), EffectiveHours: 10},
		{Stats: friend(10, 2, 2, 2, 30, 1), EffectiveHours: 10},
		{Stats: friend(1, 40, 40, 5, 30, 0), EffectiveHours: 1},
	}
	snap := NewSnapshot(friends, DefaultPolicy())
	assert.True(t, snap.Strength(friends[3]).Hidden)
}

func TestStrength_PolicyIsConfigurable(t *testing.T) {
	friends := []Metrics{
		{Stats: friend(5, 5, 5, 5, 10, 2), EffectiveHours: 5},
		{Stats: friend(5, 5, 5, 5, 10, 0), EffectiveHours: 5},
	}
	snap := NewSnapshot(friends, Policy{HiddenQuantile: 0.7, NeutralBondRatio: 0.2})
	assert.InDelta(t, 0.2*BondWeight, snap.Strength(friends[1]).Breakdown.Bond, 1e-12)
}

func TestStrength_Sentinels(t *testing.T) {
	friends := []Metrics{
		{Stats: friend(0, 0, 3, 0, 10, 4), EffectiveHours: 0},
		{Stats: friend(4, 2, 2, 2, 0, 0), EffectiveHours: 3},
	}
	snap := NewSnapshot(friends, DefaultPolicy())

	zero := snap.Strength(friends[0])
	assert.Zero(t, zero.Score)
	assert.Equal(t, 1, snap.Depth.Len(), "zero-hour friends stay out of populations")

	noSpan := snap.Strength(friends[1])
	assert.Zero(t, noSpan.Breakdown.Stability)
	assert.Zero(t, snap.Strength(Metrics{}).Score)
}

func TestStrength_StabilityIsSqrtOfRatio(t *testing.T) {
	friends := []Metrics{{Stats: friend(10, 5, 5, 25, 100, 1), EffectiveHours: 10}}
	s := NewSnapshot(friends, DefaultPolicy()).Strength(friends[0])
	assert.InDelta(t, math.Sqrt(0.25)*StabilityWeight, s.Breakdown.Stability, 1e-12)
	// A lone friend sits at the median: quality is exactly half its weight.
	assert.InDelta(t, QualityWeight/2, s.Breakdown.Quality, 1e-12)
}

func TestCompositesBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		friends := make([]Metrics, n)
		windows := make([]WindowMetrics, n)
		for i := range friends {
			hours := rng.ExpFloat64() * 20
			if rng.Intn(5) == 0 {
				hours = 0
			}
			interactions := rng.Intn(50)
			if hours > 0 && interactions == 0 {
				interactions = 1
			}
			total := 1 + rng.Intn(400)
			friends[i] = Metrics{
				Stats:          friend(hours, interactions, interactions+rng.Intn(5), rng.Intn(total+50), total, rng.Intn(6)),
				EffectiveHours: hours * rng.Float64(),
			}
			windows[i] = WindowMetrics{Hours: hours * rng.Float64() * float64(rng.Intn(2)), Meets: rng.Intn(30)}
		}

		snap := NewSnapshot(friends, DefaultPolicy())
		ws := NewWindowSnapshot(30, windows, rng.Float64()*200)
		for i := range friends {
			s := snap.Strength(friends[i])
			require.GreaterOrEqual(t, s.Score, 0.0)
			require.LessOrEqual(t, s.Score, 100.0)
			assert.LessOrEqual(t, s.Breakdown.Depth, DepthWeight)
			assert.LessOrEqual(t, s.Breakdown.Quality, QualityWeight)
			assert.LessOrEqual(t, s.Breakdown.Stability, StabilityWeight)
			assert.LessOrEqual(t, s.Breakdown.Bond, BondWeight)

			in := ws.Intimacy(windows[i])
			require.GreaterOrEqual(t, in.Score, 0.0)
			require.LessOrEqual(t, in.Score, 100.0)
		}
	}
}

func TestIntimacy_PopulationRestrictedToRecent(t *testing.T) {
	windows := []WindowMetrics{{Hours: 0, Meets: 0}, {Hours: 1, Meets: 1}, {Hours: 5, Meets: 3}}
	ws := NewWindowSnapshot(30, windows, 10)

	assert.Equal(t, 2, ws.Hours.Len())
	assert.Zero(t, ws.Intimacy(windows[0]).Score)

	low := ws.Intimacy(windows[1])
	assert.InDelta(t, 0.25*RecentTimeWeight, low.Breakdown.RecentTime, 1e-12)
	assert.InDelta(t, 0.25*RecentFreqWeight, low.Breakdown.RecentFreq, 1e-12)
	assert.InDelta(t, 0.1, low.LifeShare, 1e-12)

	high := ws.Intimacy(windows[2])
	assert.Greater(t, high.Score, low.Score)
	assert.InDelta(t, 0.3, ws.ShareMedian, 1e-12)
}

func TestIntimacy_NoOwnerHours(t *testing.T) {
	windows := []WindowMetrics{{Hours: 2, Meets: 2}}
	ws := NewWindowSnapshot(30, windows, 0)

	in := ws.Intimacy(windows[0])
	assert.Zero(t, in.Breakdown.Share)
	assert.Zero(t, in.LifeShare)
	assert.Equal(t, MinShareMedian, ws.ShareMedian)
	assert.InDelta(t, 0.5*(RecentTimeWeight+RecentFreqWeight), in.Score, 1e-12)
}
