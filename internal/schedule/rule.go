// Package schedule evaluates declarative time-window rules into a single
// "should the kiosk service run right now" decision.
package schedule

import "time"

// RuleKind enumerates the supported rule types.
type RuleKind string

const (
	KindDaily        RuleKind = "daily"
	KindWeekly       RuleKind = "weekly"
	KindSpecificDate RuleKind = "specific-date"
)

// Weekday codes as used by the persisted schedule data: 1=Sunday … 7=Saturday.
// This is not ISO numbering; the producer side writes these values, so they
// must be preserved exactly.
const (
	Sunday    = 1
	Monday    = 2
	Tuesday   = 3
	Wednesday = 4
	Thursday  = 5
	Friday    = 6
	Saturday  = 7
)

// WeekdayCode converts a time.Weekday into the persisted 1=Sunday…7=Saturday coding.
func WeekdayCode(wd time.Weekday) int {
	return int(wd) + 1
}

// Rule is a single declarative time-window rule.
//
// Start and End are minutes of day (0–1439). End <= Start is a valid
// overnight window that wraps past midnight, not an error.
type Rule struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       RuleKind `json:"kind"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	ActiveDays []int    `json:"active_days,omitempty"` // weekly only, 1=Sunday…7=Saturday
	ActiveDate string   `json:"active_date,omitempty"` // specific-date only, local YYYY-MM-DD
	Enabled    bool     `json:"enabled"`
}

// Set is an ordered sequence of rules. Insertion order is significant: the
// first matching enabled rule wins and evaluation short-circuits.
type Set struct {
	Rules []Rule `json:"rules"`
}
