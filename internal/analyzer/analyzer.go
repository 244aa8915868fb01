// Package analyzer scores friend relationships and ties aggregation, decay,
// normalization and community detection into one analysis run.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Haor/vrc-nexus/internal/community"
	"github.com/Haor/vrc-nexus/internal/config"
	"github.com/Haor/vrc-nexus/internal/decay"
	"github.com/Haor/vrc-nexus/internal/interaction"
	"github.com/Haor/vrc-nexus/internal/logging"
	"github.com/Haor/vrc-nexus/internal/report"
)

// Analyzer computes relationship scores and communities for a dataset.
type Analyzer struct {
	logger *log.Logger
}

// New creates a new Analyzer. A nil logger discards output.
func New(logger *log.Logger) *Analyzer {
	return &Analyzer{logger: logging.WithPrefix(logger, "analyzer")}
}

// Run analyzes ds with the given settings. Invalid settings are rejected
// before any computation; everything else degrades to zero scores rather
// than failing. The context only cancels community detection.
func (a *Analyzer) Run(ctx context.Context, ds Dataset, settings config.Settings) (*report.Report, error) {
	if err := checkSettings(settings); err != nil {
		return nil, err
	}
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}
	policy := Policy{HiddenQuantile: settings.HiddenQuantile, NeutralBondRatio: settings.NeutralBondRatio}

	ids := make([]string, 0, len(ds.Friends))
	names := make(map[string]string, len(ds.Friends))
	for _, f := range ds.Friends {
		if f.ID == "" || f.ID == ds.OwnerID || f.ID == PlaceholderUserID {
			continue
		}
		if _, dup := names[f.ID]; dup {
			continue
		}
		ids = append(ids, f.ID)
		names[f.ID] = f.DisplayName
	}

	agg := interaction.Aggregate(ds.Sessions, interaction.Options{
		Location:  loc,
		Reference: ds.Reference,
		Friends:   ids,
		Exclude:   []string{ds.OwnerID, PlaceholderUserID},
	})
	for _, err := range agg.Errors {
		a.logger.Warn("dropped session", "err", err)
	}

	ref := agg.LastDay
	if !ds.Reference.IsZero() {
		ref = interaction.DayOf(ds.Reference, loc)
	}

	ownerDays := interaction.DistinctDays(ds.OwnerSessions, loc)
	if len(ds.OwnerSessions) == 0 {
		ownerDays = interaction.DistinctDays(ds.Sessions, loc)
	}
	profile := decay.Profile(ownerDays, agg.TotalDays)
	params := decay.Resolve(profile, settings.HalfLife, settings.RecentWindow)
	a.logger.Info("decay parameters",
		"activity", profile.ActivityFactor, "halfLife", params.HalfLifeDays, "recentWindow", params.RecentWindowDays)

	graph := community.NewGraph(ids, ds.Edges, settings.EdgeWeighting)
	for id, stats := range agg.Friends {
		stats.MutualFriendCount = graph.Degree(id)
	}

	records := Score(agg, ref, params, policy, func(days int) float64 {
		return ownerHours(ds.OwnerSessions, ref, days, loc)
	})
	for i := range records {
		records[i].DisplayName = names[records[i].FriendID]
	}

	detector := community.NewDetector(community.Options{
		Algorithm:  settings.Algorithm,
		Resolution: settings.Resolution,
		Runs:       settings.Runs,
		Theta:      settings.Theta,
		Seed:       settings.Seed,
	}, a.logger)
	comms, err := detector.Detect(ctx, graph)
	if err != nil {
		return nil, err
	}

	meta := report.Meta{
		OwnerID:          ds.OwnerID,
		Reference:        ref.Start(loc),
		ActivityFactor:   profile.ActivityFactor,
		OwnerActiveDays:  profile.ActiveDays,
		TotalDays:        agg.TotalDays,
		HalfLifeDays:     params.HalfLifeDays,
		HalfLifeAuto:     params.HalfLifeAuto,
		RecentWindowDays: params.RecentWindowDays,
		RecentAuto:       params.RecentAuto,
		OwnerRecentHours: ownerHours(ds.OwnerSessions, ref, params.RecentWindowDays, loc),
		Algorithm:        string(comms.Algorithm),
		Resolution:       comms.Resolution,
		Modularity:       comms.Modularity,
		Seed:             comms.Seed,
		GraphNodes:       graph.Len(),
		GraphEdges:       graph.EdgeCount(),
		Malformed:        agg.Malformed,
	}
	for _, r := range records {
		if r.TotalHours > 0 {
			meta.ScoredCount++
		}
	}
	meta.Empty = meta.ScoredCount == 0

	rep := report.Assemble(records, comms.Partition, comms.Communities, meta)
	a.logger.Info("analysis complete",
		"friends", rep.Meta.FriendCount, "scored", rep.Meta.ScoredCount,
		"communities", rep.Meta.CommunityCount, "modularity", rep.Meta.Modularity)
	return rep, nil
}

// Score computes every friend's strength and intimacy in two passes: all
// populations are collected first, then each friend is scored against the
// same snapshots. ownerHours returns the owner's online hours over the last
// n days.
func Score(agg *interaction.Result, ref interaction.Day, params decay.Parameters, policy Policy, ownerHours func(days int) float64) []report.Record {
	ids := agg.IDs()

	metrics := make([]Metrics, len(ids))
	for i, id := range ids {
		stats := agg.Friends[id]
		metrics[i] = Metrics{Stats: stats, EffectiveHours: decay.EffectiveHours(stats, ref, params.HalfLifeDays)}
	}
	snap := NewSnapshot(metrics, policy)

	windows := append([]int{params.RecentWindowDays}, FixedWindows...)
	snaps := make([]*WindowSnapshot, len(windows))
	perWindow := make([][]WindowMetrics, len(windows))
	for w, days := range windows {
		perWindow[w] = make([]WindowMetrics, len(ids))
		for i, id := range ids {
			hours, meets := decay.Window(agg.Friends[id], ref, days)
			perWindow[w][i] = WindowMetrics{Hours: hours, Meets: meets}
		}
		snaps[w] = NewWindowSnapshot(days, perWindow[w], ownerHours(days))
	}

	records := make([]report.Record, len(ids))
	for i, id := range ids {
		m := metrics[i]
		st := m.Stats
		strength := snap.Strength(m)
		recent := snaps[0].Intimacy(perWindow[0][i])

		rec := report.Record{
			FriendID:             id,
			RelationshipStrength: strength.Score,
			StrengthBreakdown:    strength.Breakdown,
			DepthPercentile:      strength.DepthPercentile,
			Hidden:               strength.Hidden,
			RecentIntimacy:       recent.Score,
			IntimacyBreakdown:    recent.Breakdown,
			RecentHours:          recent.Hours,
			RecentMeets:          recent.Meets,
			LifeShare:            recent.LifeShare,
			TotalHours:           st.TotalHours,
			EffectiveHours:       m.EffectiveHours,
			RetentionRate:        decay.Retention(m.EffectiveHours, st.TotalHours),
			InteractionCount:     st.InteractionCount,
			MeetCount:            st.MeetCount,
			ActiveDays:           st.ActiveDays,
			MutualFriendCount:    st.MutualFriendCount,
			FirstSeen:            st.FirstSeen,
			LastSeen:             st.LastSeen,
		}
		if st.InteractionCount > 0 {
			rec.AvgSessionHours = st.TotalHours / float64(st.InteractionCount)
		}
		for w := 1; w < len(windows); w++ {
			rec.Windows = append(rec.Windows, snaps[w].Intimacy(perWindow[w][i]))
		}
		rec.Hours7d, rec.Meets7d = decay.Window(st, ref, 7)
		rec.Hours30d, rec.Meets30d = decay.Window(st, ref, 30)
		if days := st.Days(); len(days) > 0 {
			rec.DaysKnown = max(ref.Since(days[0]), 0)
		}
		records[i] = rec
	}
	return records
}

// ownerHours sums the owner's online time over days [ref-days, ref].
func ownerHours(sessions []interaction.Session, ref interaction.Day, days int, loc *time.Location) float64 {
	from := ref.AddDays(-days).Start(loc)
	to := ref.AddDays(1).Start(loc)
	return interaction.HoursWithin(sessions, from, to)
}

// checkSettings rejects values the core cannot run with, for callers that
// build Settings without config.Load.
func checkSettings(s config.Settings) error {
	switch {
	case s.HalfLife < 0:
		return fmt.Errorf("%w: half-life must be > 0 or auto, got %v", config.ErrInvalid, s.HalfLife)
	case s.RecentWindow < 0:
		return fmt.Errorf("%w: recent window must be > 0 or auto, got %d", config.ErrInvalid, s.RecentWindow)
	case s.Algorithm != community.Louvain && s.Algorithm != community.Leiden:
		return fmt.Errorf("%w: unknown community algorithm %q", config.ErrInvalid, s.Algorithm)
	case s.Resolution < 0:
		return fmt.Errorf("%w: resolution must be > 0 or auto, got %v", config.ErrInvalid, s.Resolution)
	case s.Runs <= 0:
		return fmt.Errorf("%w: runs must be > 0, got %d", config.ErrInvalid, s.Runs)
	case s.Theta <= 0:
		return fmt.Errorf("%w: theta must be > 0, got %v", config.ErrInvalid, s.Theta)
	case s.HiddenQuantile <= 0 || s.HiddenQuantile >= 1:
		return fmt.Errorf("%w: hidden quantile must be in (0, 1), got %v", config.ErrInvalid, s.HiddenQuantile)
	case s.NeutralBondRatio < 0 || s.NeutralBondRatio > 1:
		return fmt.Errorf("%w: neutral bond ratio must be in [0, 1], got %v", config.ErrInvalid, s.NeutralBondRatio)
	case s.EdgeWeighting != community.WeightUnit && s.EdgeWeighting != community.WeightShared:
		return fmt.Errorf("%w: unknown edge weighting %q", config.ErrInvalid, s.EdgeWeighting)
	}
	return nil
}
