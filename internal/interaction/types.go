// Package interaction turns raw join/leave sessions into per-friend daily
// time-on-record buckets and aggregate totals.
package interaction

import (
	"errors"
	"sort"
	"time"
)

// ErrMalformedSession is reported for sessions whose exit precedes their
// enter time. Such sessions are dropped and counted, never fatal.
var ErrMalformedSession = errors.New("malformed session")

// Session is one continuous stretch of time spent with a friend.
type Session struct {
	FriendID string
	Enter    time.Time
	Exit     time.Time
}

// Duration returns the session length.
func (s Session) Duration() time.Duration {
	return s.Exit.Sub(s.Enter)
}

// FriendStats holds everything derived from one friend's sessions.
type FriendStats struct {
	FriendID          string
	TotalHours        float64
	TotalDays         int // observation span of the whole log, shared by all friends
	ActiveDays        int
	InteractionCount  int // sessions with a positive duration
	MeetCount         int // all sessions
	MutualFriendCount int
	DailyHours        map[Day]float64
	DailyMeets        map[Day]int
	FirstSeen         time.Time
	LastSeen          time.Time
}

func newFriendStats(id string) *FriendStats {
	return &FriendStats{
		FriendID:   id,
		DailyHours: make(map[Day]float64),
		DailyMeets: make(map[Day]int),
	}
}

// Days returns the days with recorded time or meetings, ascending.
func (f *FriendStats) Days() []Day {
	seen := make(map[Day]struct{}, len(f.DailyHours)+len(f.DailyMeets))
	for d := range f.DailyHours {
		seen[d] = struct{}{}
	}
	for d := range f.DailyMeets {
		seen[d] = struct{}{}
	}
	days := make([]Day, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// HasInteractions reports whether any time was recorded with the friend.
func (f *FriendStats) HasInteractions() bool {
	return f.TotalHours > 0
}

// Result is the output of Aggregate.
type Result struct {
	Friends   map[string]*FriendStats
	FirstDay  Day
	LastDay   Day
	TotalDays int
	Malformed int
	Ignored   int     // sessions for unknown or excluded friends
	Errors    []error // first few malformed-session errors, for diagnostics
}

// IDs returns the friend ids in ascending order.
func (r *Result) IDs() []string {
	ids := make([]string, 0, len(r.Friends))
	for id := range r.Friends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
