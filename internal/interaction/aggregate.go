package interaction

import (
	"fmt"
	"time"
)

// maxRecordedErrors bounds Result.Errors; Result.Malformed keeps the full count.
const maxRecordedErrors = 10

// Options controls aggregation.
type Options struct {
	// Location resolves calendar days. Defaults to UTC.
	Location *time.Location
	// Reference is the analysis reference time. The observation span runs
	// from the first observed day to the reference day. When zero the last
	// observed day is used.
	Reference time.Time
	// Friends restricts aggregation to known friends. Every listed friend gets
	// a FriendStats entry even without sessions. When empty, every session's
	// friend is accepted.
	Friends []string
	// Exclude lists ids whose sessions are ignored (the owner, placeholder ids).
	Exclude []string
}

// Aggregate buckets sessions per friend per calendar day.
//
// A session overlapping midnight is split across the days it touches in
// proportion to the wall time spent in each. The meet counter increments once
// per session, on the day the session began. Sessions whose exit precedes
// their enter time are dropped and counted in Result.Malformed.
func Aggregate(sessions []Session, opts Options) *Result {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, id := range opts.Exclude {
		excluded[id] = true
	}

	res := &Result{Friends: make(map[string]*FriendStats)}
	restrict := len(opts.Friends) > 0
	for _, id := range opts.Friends {
		if id == "" || excluded[id] {
			continue
		}
		res.Friends[id] = newFriendStats(id)
	}

	first, last := Day(0), Day(0)
	seen := false

	for _, s := range sessions {
		if s.FriendID == "" || excluded[s.FriendID] {
			res.Ignored++
			continue
		}

		stats, ok := res.Friends[s.FriendID]
		if !ok {
			if restrict {
				res.Ignored++
				continue
			}
			stats = newFriendStats(s.FriendID)
			res.Friends[s.FriendID] = stats
		}

		if s.Exit.Before(s.Enter) {
			res.Malformed++
			if len(res.Errors) < maxRecordedErrors {
				res.Errors = append(res.Errors, fmt.Errorf("%w: friend %s exit %s before enter %s",
					ErrMalformedSession, s.FriendID, s.Exit.Format(time.RFC3339), s.Enter.Format(time.RFC3339)))
			}
			continue
		}

		addSession(stats, s, loc)

		startDay := DayOf(s.Enter, loc)
		endDay := DayOf(s.Exit, loc)
		if !seen || startDay < first {
			first = startDay
		}
		if !seen || endDay > last {
			last = endDay
		}
		seen = true
	}

	if !seen {
		return res
	}

	ref := last
	if !opts.Reference.IsZero() {
		ref = DayOf(opts.Reference, loc)
	}
	res.FirstDay = first
	res.LastDay = last
	res.TotalDays = ObservationSpan(first, ref)

	for _, stats := range res.Friends {
		stats.TotalDays = res.TotalDays
		active := 0
		for _, h := range stats.DailyHours {
			if h > 0 {
				active++
			}
		}
		stats.ActiveDays = active
	}

	return res
}

// addSession folds one well-formed session into stats.
func addSession(stats *FriendStats, s Session, loc *time.Location) {
	stats.MeetCount++
	stats.DailyMeets[DayOf(s.Enter, loc)]++

	if stats.FirstSeen.IsZero() || s.Enter.Before(stats.FirstSeen) {
		stats.FirstSeen = s.Enter
	}
	if s.Exit.After(stats.LastSeen) {
		stats.LastSeen = s.Exit
	}

	if !s.Exit.After(s.Enter) {
		return
	}
	stats.InteractionCount++
	stats.TotalHours += s.Duration().Hours()

	cur := s.Enter.In(loc)
	end := s.Exit.In(loc)
	for cur.Before(end) {
		y, m, d := cur.Date()
		next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		stop := end
		if next.Before(end) {
			stop = next
		}
		stats.DailyHours[DayOf(cur, loc)] += stop.Sub(cur).Hours()
		cur = stop
	}
}

// ObservationSpan returns the number of days from first to ref inclusive,
// never less than 1.
func ObservationSpan(first, ref Day) int {
	span := ref.Since(first) + 1
	if span < 1 {
		return 1
	}
	return span
}

// DistinctDays counts the calendar days touched by any well-formed session.
func DistinctDays(sessions []Session, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[Day]struct{})
	for _, s := range sessions {
		if s.Exit.Before(s.Enter) {
			continue
		}
		for d := DayOf(s.Enter, loc); d <= DayOf(s.Exit, loc); d++ {
			days[d] = struct{}{}
		}
	}
	return len(days)
}

// HoursWithin sums the part of each session overlapping [from, to].
func HoursWithin(sessions []Session, from, to time.Time) float64 {
	total := 0.0
	for _, s := range sessions {
		start, end := s.Enter, s.Exit
		if end.Before(start) {
			continue
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			total += end.Sub(start).Hours()
		}
	}
	return total
}
