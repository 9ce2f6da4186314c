package schedule

import "time"

// ShouldRun reports whether any enabled rule in the set matches the given
// instant. Rules are evaluated in order; the first rule whose window and kind
// both match wins. An empty set never matches.
//
// ShouldRun is pure: same inputs always produce the same result, and it
// performs no I/O. Callers inject the clock.
func ShouldRun(set Set, now time.Time) bool {
	cur := now.Hour()*60 + now.Minute()

	for _, rule := range set.Rules {
		if !rule.Enabled {
			continue
		}
		if !windowMatches(rule, cur) {
			continue
		}
		if kindMatches(rule, now) {
			return true
		}
	}
	return false
}

// ActiveRule returns the first enabled rule matching now, if any. It shares
// ShouldRun's semantics and exists for status reporting.
func ActiveRule(set Set, now time.Time) (Rule, bool) {
	cur := now.Hour()*60 + now.Minute()

	for _, rule := range set.Rules {
		if !rule.Enabled {
			continue
		}
		if windowMatches(rule, cur) && kindMatches(rule, now) {
			return rule, true
		}
	}
	return Rule{}, false
}

// windowMatches checks minute-of-day membership. End <= Start wraps midnight.
func windowMatches(rule Rule, cur int) bool {
	if rule.End > rule.Start {
		return cur >= rule.Start && cur < rule.End
	}
	// Overnight window, e.g. 22:00–02:00.
	return cur >= rule.Start || cur < rule.End
}

func kindMatches(rule Rule, now time.Time) bool {
	switch rule.Kind {
	case KindDaily:
		return true
	case KindWeekly:
		code := WeekdayCode(now.Weekday())
		for _, d := range rule.ActiveDays {
			if d == code {
				return true
			}
		}
		return false
	case KindSpecificDate:
		return now.Format("2006-01-02") == rule.ActiveDate
	default:
		return false
	}
}
