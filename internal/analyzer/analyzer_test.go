package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haor/vrc-nexus/internal/community"
	"github.com/Haor/vrc-nexus/internal/config"
	"github.com/Haor/vrc-nexus/internal/interaction"
	"github.com/Haor/vrc-nexus/internal/report"
)

var refTime = time.Date(2024, 6, 30, 20, 0, 0, 0, time.UTC)

func testSettings() config.Settings {
	return config.Settings{
		Algorithm:        community.Leiden,
		Runs:             3,
		Theta:            0.01,
		Seed:             42,
		EdgeWeighting:    community.WeightUnit,
		Location:         time.UTC,
		HiddenQuantile:   0.7,
		NeutralBondRatio: 0.5,
		Top:              25,
	}
}

// daily returns one session per day of the given length, on each of the
// count days ending daysAgo days before refTime.
func daily(id string, count, daysAgo int, length time.Duration) []interaction.Session {
	var out []interaction.Session
	last := time.Date(refTime.Year(), refTime.Month(), refTime.Day(), 10, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	for i := 0; i < count; i++ {
		enter := last.AddDate(0, 0, -i)
		out = append(out, interaction.Session{FriendID: id, Enter: enter, Exit: enter.Add(length)})
	}
	return out
}

func find(t *testing.T, rep *report.Report, id string) *report.Record {
	t.Helper()
	rec, ok := rep.Find(id)
	require.True(t, ok, "friend %s missing from report", id)
	return rec
}

func TestRun_DecayExample(t *testing.T) {
	var sessions []interaction.Session
	sessions = append(sessions, daily("usr_a", 100, 0, time.Hour)...)
	sessions = append(sessions, daily("usr_b", 100, 200, time.Hour)...)
	sessions = append(sessions, daily("usr_c", 10, 0, 6*time.Minute)...)

	s := testSettings()
	s.HalfLife = 90
	ds := Dataset{
		Reference: refTime,
		Friends:   []Friend{{ID: "usr_a", DisplayName: "A"}, {ID: "usr_b", DisplayName: "B"}, {ID: "usr_c", DisplayName: "C"}},
		Sessions:  sessions,
	}

	rep, err := New(nil).Run(context.Background(), ds, s)
	require.NoError(t, err)

	a, b, c := find(t, rep, "usr_a"), find(t, rep, "usr_b"), find(t, rep, "usr_c")
	assert.Equal(t, 90.0, rep.Meta.HalfLifeDays)
	assert.False(t, rep.Meta.HalfLifeAuto)

	assert.Greater(t, a.EffectiveHours, 4*b.EffectiveHours)
	assert.Greater(t, c.EffectiveHours, 0.0)
	assert.Less(t, c.EffectiveHours, 1.0)
	assert.InDelta(t, 100.0, b.TotalHours, 1e-9)
	assert.Less(t, b.RetentionRate, 0.25)

	// C is not asserted above B: with a 90 day half-life B's 100 old hours
	// still decay to about 15 effective hours against C's 1, so B's depth
	// outranks C's.
	assert.Greater(t, a.RelationshipStrength, b.RelationshipStrength)
	assert.Greater(t, a.RelationshipStrength, c.RelationshipStrength)

	// B has nothing recent, so only A and C are ranked for intimacy.
	assert.Greater(t, a.RecentIntimacy, c.RecentIntimacy)
	assert.Greater(t, c.RecentIntimacy, 0.0)
	assert.Zero(t, b.RecentIntimacy)
	assert.Equal(t, 1, a.StrengthRank)
	assert.Equal(t, 1, a.IntimacyRank)

	w90, ok := a.IntimacyOver(90)
	require.True(t, ok)
	assert.Greater(t, w90.Hours, 80.0)
	assert.Equal(t, []int{30, 60, 90}, []int{a.Windows[0].Days, a.Windows[1].Days, a.Windows[2].Days})

	assert.Equal(t, 8, a.Meets7d)
	assert.Equal(t, 31, a.Meets30d)
	assert.Equal(t, 99, a.DaysKnown)
	assert.Equal(t, "A", a.DisplayName)
}

func TestRun_CommunitiesAndMutualCounts(t *testing.T) {
	friends := []Friend{{ID: "usr_1"}, {ID: "usr_2"}, {ID: "usr_3"}, {ID: "usr_4"}, {ID: "usr_solo"}}
	var sessions []interaction.Session
	for _, f := range friends {
		sessions = append(sessions, daily(f.ID, 5, 0, 2*time.Hour)...)
	}
	edges := []community.Edge{
		{Source: "usr_1", Target: "usr_2"},
		{Source: "usr_2", Target: "usr_3"},
		{Source: "usr_1", Target: "usr_3"},
		{Source: "usr_3", Target: "usr_4"},
		{Source: "usr_4", Target: "usr_stranger"},
	}

	rep, err := New(nil).Run(context.Background(), Dataset{
		Reference: refTime, Friends: friends, Sessions: sessions, Edges: edges,
	}, testSettings())
	require.NoError(t, err)

	assert.Equal(t, 2, find(t, rep, "usr_1").MutualFriendCount)
	assert.Equal(t, 3, find(t, rep, "usr_3").MutualFriendCount)
	assert.Equal(t, 1, find(t, rep, "usr_4").MutualFriendCount)

	solo := find(t, rep, "usr_solo")
	assert.Nil(t, solo.Community)
	assert.Zero(t, solo.MutualFriendCount)
	for _, id := range []string{"usr_1", "usr_2", "usr_3", "usr_4"} {
		assert.NotNil(t, find(t, rep, id).Community, id)
	}
	for _, c := range rep.Communities {
		assert.NotContains(t, c.Members, "usr_solo")
	}
	assert.Equal(t, 4, rep.Meta.GraphNodes)
	assert.Equal(t, 4, rep.Meta.GraphEdges)
	assert.Greater(t, rep.Meta.Resolution, 1.0)
}

func TestRun_EmptyDataset(t *testing.T) {
	rep, err := New(nil).Run(context.Background(), Dataset{
		Reference: refTime,
		Friends:   []Friend{{ID: "usr_a"}, {ID: "usr_b"}},
	}, testSettings())
	require.NoError(t, err)

	assert.True(t, rep.Meta.Empty)
	assert.Zero(t, rep.Meta.CommunityCount)
	assert.Zero(t, rep.Meta.Modularity)
	require.Len(t, rep.Records, 2)
	for _, r := range rep.Records {
		assert.Zero(t, r.RelationshipStrength)
		assert.Zero(t, r.RecentIntimacy)
		assert.Nil(t, r.Community)
	}
}

func TestRun_MalformedSessionsAreIsolated(t *testing.T) {
	sessions := daily("usr_a", 3, 0, time.Hour)
	sessions = append(sessions, interaction.Session{FriendID: "usr_b", Enter: refTime, Exit: refTime.Add(-time.Hour)})
	sessions = append(sessions, daily("usr_b", 2, 0, time.Hour)...)

	rep, err := New(nil).Run(context.Background(), Dataset{
		Reference: refTime,
		Friends:   []Friend{{ID: "usr_a"}, {ID: "usr_b"}},
		Sessions:  sessions,
	}, testSettings())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Meta.Malformed)
	assert.InDelta(t, 2.0, find(t, rep, "usr_b").TotalHours, 1e-9)
}

func TestRun_OwnerAndPlaceholderExcluded(t *testing.T) {
	sessions := daily("usr_a", 3, 0, time.Hour)
	sessions = append(sessions, daily("usr_owner", 3, 0, time.Hour)...)
	sessions = append(sessions, daily(PlaceholderUserID, 3, 0, time.Hour)...)

	rep, err := New(nil).Run(context.Background(), Dataset{
		OwnerID:   "usr_owner",
		Reference: refTime,
		Friends:   []Friend{{ID: "usr_a"}, {ID: "usr_owner"}, {ID: PlaceholderUserID}},
		Sessions:  sessions,
		OwnerSessions: []interaction.Session{
			{Enter: refTime.Add(-10 * time.Hour), Exit: refTime.Add(-time.Hour)},
		},
	}, testSettings())
	require.NoError(t, err)

	require.Len(t, rep.Records, 1)
	assert.Equal(t, "usr_a", rep.Records[0].FriendID)
	assert.InDelta(t, 9.0, rep.Meta.OwnerRecentHours, 1e-9)
	assert.Greater(t, rep.Records[0].LifeShare, 0.0)
}

func TestRun_RejectsInvalidSettings(t *testing.T) {
	mutations := []func(*config.Settings){
		func(s *config.Settings) { s.HalfLife = -1 },
		func(s *config.Settings) { s.Algorithm = "walktrap" },
		func(s *config.Settings) { s.Runs = 0 },
		func(s *config.Settings) { s.HiddenQuantile = 1 },
		func(s *config.Settings) { s.EdgeWeighting = "jaccard" },
	}
	for i, mutate := range mutations {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			s := testSettings()
			mutate(&s)
			_, err := New(nil).Run(context.Background(), Dataset{}, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var friends []Friend
	var sessions []interaction.Session
	var edges []community.Edge
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("usr_%02d", i)
		friends = append(friends, Friend{ID: id})
		sessions = append(sessions, daily(id, 1+rng.Intn(40), rng.Intn(60), time.Duration(1+rng.Intn(180))*time.Minute)...)
		for j := 0; j < i; j++ {
			if rng.Float64() < 0.15 {
				edges = append(edges, community.Edge{Source: id, Target: fmt.Sprintf("usr_%02d", j)})
			}
		}
	}
	ds := Dataset{Reference: refTime, Friends: friends, Sessions: sessions, Edges: edges}

	first, err := New(nil).Run(context.Background(), ds, testSettings())
	require.NoError(t, err)
	second, err := New(nil).Run(context.Background(), ds, testSettings())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, r := range first.Records {
		assert.GreaterOrEqual(t, r.RelationshipStrength, 0.0)
		assert.LessOrEqual(t, r.RelationshipStrength, 100.0)
		assert.GreaterOrEqual(t, r.RecentIntimacy, 0.0)
		assert.LessOrEqual(t, r.RecentIntimacy, 100.0)
	}
}
