package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleType discriminates recurrence stepping strategies.
type RuleType string

const (
	RuleDaily   RuleType = "daily"
	RuleWeekly  RuleType = "weekly"
	RuleMonthly RuleType = "monthly"
)

// maxOccurrencesPerEvent bounds expansion so a pathological rule or window
// can never loop unboundedly.
const maxOccurrencesPerEvent = 1000

// RecurringRule describes how an event repeats.
type RecurringRule struct {
	Type       RuleType `json:"type"`
	Interval   int      `json:"interval"`
	DayOfWeek  *int     `json:"dayOfWeek,omitempty"`  // 0 = Sunday .. 6 = Saturday
	DayOfMonth *int     `json:"dayOfMonth,omitempty"` // 1..31, clamped per month
}

// ParseRule decodes and schema-validates a stored recurrence rule.
func ParseRule(raw []byte) (*RecurringRule, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty recurrence rule")
	}
	var rule RecurringRule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil, fmt.Errorf("decode recurrence rule: %w", err)
	}
	switch rule.Type {
	case RuleDaily, RuleWeekly, RuleMonthly:
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
	if rule.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", rule.Interval)
	}
	if rule.DayOfWeek != nil && (*rule.DayOfWeek < 0 || *rule.DayOfWeek > 6) {
		return nil, fmt.Errorf("dayOfWeek out of range: %d", *rule.DayOfWeek)
	}
	if rule.DayOfMonth != nil && (*rule.DayOfMonth < 1 || *rule.DayOfMonth > 31) {
		return nil, fmt.Errorf("dayOfMonth out of range: %d", *rule.DayOfMonth)
	}
	return &rule, nil
}

// ExpandEvents materializes every occurrence of the given events that
// overlaps [windowStart, windowEnd]. Non-recurring events contribute at most
// one occurrence. Recurring events with an absent or malformed rule are
// excluded entirely. No ordering is guaranteed; callers sort.
func ExpandEvents(events []*Event, windowStart, windowEnd time.Time) []Occurrence {
	var out []Occurrence
	for _, ev := range events {
		out = append(out, expandEvent(ev, windowStart, windowEnd)...)
	}
	return out
}

func expandEvent(ev *Event, windowStart, windowEnd time.Time) []Occurrence {
	if !ev.IsRecurring {
		if overlaps(ev.StartDate, ev.EndDate, windowStart, windowEnd) {
			return []Occurrence{{
				Event:          ev,
				OccurrenceDate: ev.StartDate,
				StartDate:      ev.StartDate,
				EndDate:        ev.EndDate,
			}}
		}
		return nil
	}

	rule, err := ParseRule(ev.RecurringRule)
	if err != nil {
		// Malformed rules exclude the event rather than failing the query.
		return nil
	}

	duration := ev.Duration()
	start := fastForward(ev.StartDate, rule, windowStart, duration)

	var out []Occurrence
	for generated := 0; generated < maxOccurrencesPerEvent; generated++ {
		end := start.Add(duration)
		if start.After(windowEnd) {
			break
		}
		if overlaps(start, end, windowStart, windowEnd) {
			out = append(out, Occurrence{
				Event:          ev,
				OccurrenceDate: start,
				StartDate:      start,
				EndDate:        end,
			})
		}
		start = rule.next(ev.StartDate, start)
	}
	return out
}

// next computes the occurrence start following current. origin is the
// event's original start date, needed for monthly day-of-month anchoring.
func (r *RecurringRule) next(origin, current time.Time) time.Time {
	switch r.Type {
	case RuleDaily:
		return current.AddDate(0, 0, r.Interval)
	case RuleWeekly:
		if r.DayOfWeek != nil {
			// Step to the next matching weekday, then interval weeks apply on
			// subsequent iterations because the weekday already matches.
			candidate := current.AddDate(0, 0, 1)
			for int(candidate.Weekday()) != *r.DayOfWeek {
				candidate = candidate.AddDate(0, 0, 1)
			}
			if int(current.Weekday()) == *r.DayOfWeek {
				return current.AddDate(0, 0, 7*r.Interval)
			}
			return candidate
		}
		return current.AddDate(0, 0, 7*r.Interval)
	case RuleMonthly:
		// Anchor on the original day so a clamped short month does not drift
		// later occurrences off the requested day.
		day := origin.Day()
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		year, month := current.Year(), int(current.Month())+r.Interval
		clamped := clampDay(year, month, day)
		return time.Date(year, time.Month(month), clamped,
			current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), current.Location())
	}
	return current.AddDate(0, 0, r.Interval)
}

// clampDay bounds day to the last valid day of the (normalized) month.
func clampDay(year, month, day int) int {
	firstOfNext := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	last := firstOfNext.AddDate(0, 0, -1).Day()
	if day > last {
		return last
	}
	return day
}

// fastForward advances the iteration start close to the window without ever
// skipping an occurrence that could still overlap it. Exact for daily rules,
// week-stepped for weekly, and one interval conservative for monthly.
func fastForward(origin time.Time, rule *RecurringRule, windowStart time.Time, duration time.Duration) time.Time {
	// The earliest start that can still overlap the window.
	horizon := windowStart.Add(-duration)
	if !origin.Before(horizon) {
		return origin
	}

	switch rule.Type {
	case RuleDaily:
		step := time.Duration(rule.Interval) * 24 * time.Hour
		gap := horizon.Sub(origin)
		skips := int64(gap / step)
		if skips > 0 {
			return origin.AddDate(0, 0, int(skips)*rule.Interval)
		}
	case RuleWeekly:
		step := time.Duration(rule.Interval) * 7 * 24 * time.Hour
		gap := horizon.Sub(origin)
		skips := int64(gap/step) - 1
		if skips > 0 {
			return origin.AddDate(0, 0, int(skips)*7*rule.Interval)
		}
	case RuleMonthly:
		months := (horizon.Year()-origin.Year())*12 + int(horizon.Month()) - int(origin.Month())
		skips := months/rule.Interval - 1
		if skips > 0 {
			day := origin.Day()
			if rule.DayOfMonth != nil {
				day = *rule.DayOfMonth
			}
			year, month := origin.Year(), int(origin.Month())+skips*rule.Interval
			clamped := clampDay(year, month, day)
			return time.Date(year, time.Month(month), clamped,
				origin.Hour(), origin.Minute(), origin.Second(), origin.Nanosecond(), origin.Location())
		}
	}
	return origin
}

// overlaps reports standard closed-interval overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
