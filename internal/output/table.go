// Package output provides terminal output utilities for vrcnexus.
//
// This package includes:
//   - Table rendering for strength and intimacy rankings, communities, hidden
//     friends, retention extremes and the saved run history
//   - A per-friend score breakdown for explain
//   - Progress indicators for loading and analysis
//
// Columns are padded by display width so wide characters in display names
// line up. Colors are applied with lipgloss only when IsColorEnabled.
package output

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Haor/vrc-nexus/internal/report"
	"github.com/Haor/vrc-nexus/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	midStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize renders text with style if color is enabled, otherwise returns
// the plain text.
func colorize(style lipgloss.Style, text string) string {
	if IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// scoreStyle picks a color for a 0-100 score.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 70:
		return highStyle
	case score >= 40:
		return midStyle
	default:
		return lowStyle
	}
}

func formatScore(score float64) string {
	return colorize(scoreStyle(score), fmt.Sprintf("%5.1f", score))
}

// RenderSummary renders the one-line run header.
// Format: "Half-life: 120d (auto) · Recent: 40d (auto) · Activity: 0.62 · leiden γ=1.40 Q=0.312 · 4 communities"
func RenderSummary(meta report.Meta) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Half-life: %s%s", formatDays(meta.HalfLifeDays), autoSuffix(meta.HalfLifeAuto)))
	sb.WriteString(" · ")
	sb.WriteString(fmt.Sprintf("Recent: %dd%s", meta.RecentWindowDays, autoSuffix(meta.RecentAuto)))
	sb.WriteString(" · ")
	sb.WriteString(fmt.Sprintf("Activity: %.2f", meta.ActivityFactor))
	sb.WriteString(" · ")
	sb.WriteString(fmt.Sprintf("%s γ=%.2f Q=%.3f", meta.Algorithm, meta.Resolution, meta.Modularity))
	sb.WriteString(" · ")
	sb.WriteString(fmt.Sprintf("%d communities", meta.CommunityCount))

	if meta.Malformed > 0 {
		sb.WriteString(colorize(dimStyle, fmt.Sprintf(" · %d sessions dropped", meta.Malformed)))
	}
	sb.WriteString("\n")

	if meta.Empty {
		sb.WriteString("No shared time recorded yet; every score is 0.\n")
	}
	return sb.String()
}

func autoSuffix(auto bool) string {
	if auto {
		return " (auto)"
	}
	return ""
}

// formatDays renders a day count that may be fractional.
func formatDays(days float64) string {
	if days <= 0 {
		return "—"
	}
	return strconv.FormatFloat(math.Round(days*10)/10, 'f', -1, 64) + "d"
}

// RenderStrengthTable renders friends in the given order with their
// long-term relationship strength.
// Note: Does not sort - expects records to be pre-sorted by caller.
func RenderStrengthTable(records []report.Record) string {
	if len(records) == 0 {
		return "No friends to display.\n"
	}

	var sb strings.Builder

	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%-4s %s %-8s %-10s %-10s %-9s %-7s %s",
		"#", pad("Friend", 24), "Score", "Effective", "Total", "Retained", "Mutual", "Group")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 86))
	sb.WriteString("\n")

	for _, r := range records {
		name := r.Name()
		if r.Hidden {
			name += " *"
		}
		sb.WriteString(fmt.Sprintf("%-4d %s %s %-10s %-10s %-9s %-7s %s\n",
			r.StrengthRank,
			pad(name, 24),
			pad(formatScore(r.RelationshipStrength), 8),
			formatHours(r.EffectiveHours),
			formatHours(r.TotalHours),
			fmt.Sprintf("%.0f%%", r.RetentionRate*100),
			formatCount(r.MutualFriendCount),
			formatCommunity(r.Community)))
	}

	return sb.String()
}

// RenderIntimacyTable renders friends with their recent intimacy and the
// fixed-window scores, numbered in the given order.
// Note: Does not sort - expects records to be pre-sorted by caller.
func RenderIntimacyTable(records []report.Record) string {
	if len(records) == 0 {
		return "No friends to display.\n"
	}

	var sb strings.Builder

	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%-4s %s %-8s %-9s %-6s %-7s %-6s %-6s %s",
		"#", pad("Friend", 24), "Score", "Hours", "Meets", "Share", "30d", "60d", "90d")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 86))
	sb.WriteString("\n")

	for i, r := range records {
		sb.WriteString(fmt.Sprintf("%-4d %s %s %-9s %-6d %-7s %-6s %-6s %s\n",
			i+1,
			pad(r.Name(), 24),
			pad(formatScore(r.RecentIntimacy), 8),
			formatHours(r.RecentHours),
			r.RecentMeets,
			fmt.Sprintf("%.1f%%", r.LifeShare*100),
			formatWindow(r, 30),
			formatWindow(r, 60),
			formatWindow(r, 90)))
	}

	return sb.String()
}

func formatWindow(r report.Record, days int) string {
	w, ok := r.IntimacyOver(days)
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%.1f", w.Score)
}

// RenderExplain renders a detailed breakdown of one friend's scores.
func RenderExplain(r report.Record, meta report.Meta) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Friend:    %s (%s)\n", r.Name(), r.FriendID))
	sb.WriteString(fmt.Sprintf("Strength:  %s  (rank %d)\n", strings.TrimSpace(formatScore(r.RelationshipStrength)), r.StrengthRank))
	sb.WriteString(fmt.Sprintf("Intimacy:  %s  (rank %d, last %dd)\n", strings.TrimSpace(formatScore(r.RecentIntimacy)), r.IntimacyRank, meta.RecentWindowDays))

	b := r.StrengthBreakdown
	sb.WriteString("\nStrength breakdown:\n")
	sb.WriteString(fmt.Sprintf("  Depth:      %5.1f/40 pts - %s effective (half-life %s), P%.0f\n",
		b.Depth, formatHours(r.EffectiveHours), formatDays(meta.HalfLifeDays), r.DepthPercentile*100))
	sb.WriteString(fmt.Sprintf("  Quality:    %5.1f/25 pts - %s per session over %d sessions\n",
		b.Quality, formatHours(r.AvgSessionHours), r.InteractionCount))
	sb.WriteString(fmt.Sprintf("  Stability:  %5.1f/20 pts - active on %d of %d days\n",
		b.Stability, r.ActiveDays, meta.TotalDays))
	bond := fmt.Sprintf("%d mutual friends", r.MutualFriendCount)
	if r.Hidden {
		bond = "hidden mutuals, bond follows depth"
	} else if r.MutualFriendCount == 0 {
		bond = "no mutual data, neutral"
	}
	sb.WriteString(fmt.Sprintf("  Bond:       %5.1f/15 pts - %s\n", b.Bond, bond))

	ib := r.IntimacyBreakdown
	sb.WriteString("\nIntimacy breakdown:\n")
	sb.WriteString(fmt.Sprintf("  Time:       %5.1f/40 pts - %s in the last %dd\n", ib.RecentTime, formatHours(r.RecentHours), meta.RecentWindowDays))
	sb.WriteString(fmt.Sprintf("  Frequency:  %5.1f/30 pts - %d meets\n", ib.RecentFreq, r.RecentMeets))
	sb.WriteString(fmt.Sprintf("  Share:      %5.1f/30 pts - %.1f%% of %s online\n", ib.Share, r.LifeShare*100, formatHours(meta.OwnerRecentHours)))

	if len(r.Windows) > 0 {
		sb.WriteString("\nWindows:\n")
		for _, w := range r.Windows {
			sb.WriteString(fmt.Sprintf("  %3dd:  %5.1f  %s, %d meets\n", w.Days, w.Score, formatHours(w.Hours), w.Meets))
		}
	}

	sb.WriteString("\nActivity:\n")
	sb.WriteString(fmt.Sprintf("  Last 7 days:   %s, %d meets\n", formatHours(r.Hours7d), r.Meets7d))
	sb.WriteString(fmt.Sprintf("  Last 30 days:  %s, %d meets\n", formatHours(r.Hours30d), r.Meets30d))
	sb.WriteString(fmt.Sprintf("  Known for:     %d days (first seen %s)\n", r.DaysKnown, formatDate(r.FirstSeen)))
	sb.WriteString(fmt.Sprintf("  Last seen:     %s\n", formatRelativeTime(r.LastSeen)))
	sb.WriteString(fmt.Sprintf("  Group:         %s\n", formatCommunity(r.Community)))

	return sb.String()
}

// RenderCommunities renders each community with up to maxMembers of its
// strongest members.
func RenderCommunities(rep *report.Report, maxMembers int) string {
	if len(rep.Communities) == 0 {
		return "No communities found.\n"
	}

	var sb strings.Builder
	for i, c := range rep.Communities {
		if i > 0 {
			sb.WriteString("\n")
		}
		members := rep.Members(c.ID)
		sb.WriteString(colorize(headerStyle, fmt.Sprintf("Group %d", c.ID)))
		sb.WriteString(fmt.Sprintf(" · %d members\n", len(c.Members)))

		shown := members
		if maxMembers > 0 && len(shown) > maxMembers {
			shown = shown[:maxMembers]
		}
		for _, r := range shown {
			sb.WriteString(fmt.Sprintf("  %s %s\n", pad(r.Name(), 24), formatScore(r.RelationshipStrength)))
		}
		if rest := len(members) - len(shown); rest > 0 {
			sb.WriteString(colorize(dimStyle, fmt.Sprintf("  ... and %d more", rest)))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// RenderHiddenTable renders friends whose mutual list is hidden.
func RenderHiddenTable(records []report.Record) string {
	if len(records) == 0 {
		return "No hidden friends detected.\n"
	}

	var sb strings.Builder
	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%s %-10s %-7s %s", pad("Friend", 24), "Total", "Meets", "Strength")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 52))
	sb.WriteString("\n")
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s %-10s %-7d %s\n",
			pad(r.Name(), 24), formatHours(r.TotalHours), r.MeetCount, formatScore(r.RelationshipStrength)))
	}
	return sb.String()
}

// RenderRetention renders the fading and fresh relationship lists.
func RenderRetention(fading, fresh []report.Record) string {
	var sb strings.Builder

	section := func(title string, records []report.Record) {
		sb.WriteString(colorize(headerStyle, title))
		sb.WriteString("\n")
		if len(records) == 0 {
			sb.WriteString("  (none)\n")
			return
		}
		for _, r := range records {
			sb.WriteString(fmt.Sprintf("  %s %5.1f%% retained of %s\n",
				pad(r.Name(), 24), r.RetentionRate*100, formatHours(r.TotalHours)))
		}
	}

	section("Fading", fading)
	sb.WriteString("\n")
	section("Fresh", fresh)
	return sb.String()
}

// RenderRunsTable renders saved runs.
// Note: Does not sort - expects runs newest first.
func RenderRunsTable(runs []store.Run) string {
	if len(runs) == 0 {
		return "No saved runs found.\n"
	}

	var sb strings.Builder

	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%-10s %-17s %-12s %-9s %-10s %-8s %s",
		"ID", "Created", "Reference", "Friends", "Half-life", "Groups", "Q")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%-10s %-17s %-12s %-9d %-10s %-8d %.3f\n",
			truncate(run.ID, 8),
			formatRelativeTime(run.CreatedAt),
			run.ReferenceDay,
			run.FriendCount,
			formatDays(run.HalfLife),
			run.CommunityCount,
			run.Modularity))
	}

	return sb.String()
}

// RenderRunScores renders the scores stored with a run, in stored order.
// top <= 0 renders every row.
func RenderRunScores(scores []store.RunScore, top int) string {
	if len(scores) == 0 {
		return "No scores stored for this run.\n"
	}
	if top > 0 && len(scores) > top {
		scores = scores[:top]
	}

	var sb strings.Builder
	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%-4s %s %-8s %-8s %-10s %-10s %s",
		"#", pad("Friend", 24), "Score", "Recent", "Effective", "Total", "Group")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for i, sc := range scores {
		name := sc.DisplayName
		if name == "" {
			name = sc.FriendID
		}
		if sc.Hidden {
			name += " *"
		}
		sb.WriteString(fmt.Sprintf("%-4d %s %s %s %-10s %-10s %s\n",
			i+1,
			pad(truncate(name, 24), 24),
			pad(formatScore(sc.Strength), 8),
			pad(formatScore(sc.Intimacy), 8),
			formatHours(sc.EffectiveHours),
			formatHours(sc.TotalHours),
			formatCommunity(sc.Community)))
	}
	return sb.String()
}

// RenderTrend renders a friend's scores across saved runs, oldest first,
// with the direction of change since the previous run.
func RenderTrend(points []store.TrendPoint) string {
	if len(points) == 0 {
		return "No saved runs include this friend.\n"
	}

	var sb strings.Builder
	sb.WriteString(colorize(headerStyle, fmt.Sprintf("%-12s %-10s %-10s", "Run", "Strength", "Intimacy")))
	sb.WriteString("\n")
	for i, p := range points {
		trend := "—"
		if i > 0 {
			trend = formatTrend(p.Strength - points[i-1].Strength)
		}
		sb.WriteString(fmt.Sprintf("%-12s %5.1f %s    %5.1f\n",
			formatDate(p.CreatedAt), p.Strength, trend, p.Intimacy))
	}
	return sb.String()
}

// formatTrend returns an arrow for a score change.
func formatTrend(delta float64) string {
	switch {
	case delta > 0.5:
		return "↑"
	case delta < -0.5:
		return "↓"
	default:
		return "→"
	}
}

// formatHours renders hours, switching to minutes below one hour.
func formatHours(h float64) string {
	switch {
	case h <= 0:
		return "0h"
	case h < 1:
		return fmt.Sprintf("%.0fm", h*60)
	case h < 100:
		return fmt.Sprintf("%.1fh", h)
	default:
		return fmt.Sprintf("%.0fh", h)
	}
}

func formatCount(n int) string {
	if n == 0 {
		return "—"
	}
	return fmt.Sprintf("%d", n)
}

func formatCommunity(c *int) string {
	if c == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *c)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02")
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// pad truncates s to width display cells and right-pads it with spaces.
// ANSI sequences do not count toward the width.
func pad(s string, width int) string {
	if lipgloss.Width(s) > width {
		s = truncate(s, width)
	}
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// truncate shortens s to maxLen display cells, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	ellipsis := "..."
	if maxLen <= 3 {
		ellipsis = ""
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+len(ellipsis) > maxLen {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ellipsis
}
