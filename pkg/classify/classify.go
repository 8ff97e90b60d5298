package classify

import (
	"strconv"

	"github.com/schedlens/schedlens/internal/model"
)

// Classify evaluates the ruleset against an event, first-match-wins.
// If no rule matches, the status is unknown: ambiguity resolves to
// unknown, never silently to unscheduled, and never to an error.
// Evaluation is deterministic for a given ruleset and event.
func (rs *Ruleset) Classify(e *model.TaskEvent) model.ScheduleStatus {
	for _, rule := range rs.rules {
		if matchAll(rule.when, e) {
			return rule.status
		}
	}
	return model.StatusUnknown
}

// Apply classifies the event and records the status on it.
func (rs *Ruleset) Apply(e *model.TaskEvent) {
	e.Status = rs.Classify(e)
}

// matchAll reports whether every condition matches the event.
func matchAll(conds []Condition, e *model.TaskEvent) bool {
	for _, c := range conds {
		if !match(c, e) {
			return false
		}
	}
	return true
}

// match interprets one condition. A condition that cannot be evaluated
// (missing field, non-numeric value for a range) does not match,
// negated or not; rules built on it fall through and the event ends up
// unknown rather than misclassified.
func match(c Condition, e *model.TaskEvent) bool {
	matched, ok := eval(c, e)
	if !ok {
		return false
	}
	if c.Negate {
		return !matched
	}
	return matched
}

// eval returns (matched, evaluable).
func eval(c Condition, e *model.TaskEvent) (bool, bool) {
	switch c.Kind {
	case CondFieldEquals:
		v, ok := e.Field(c.Field)
		if !ok {
			return false, false
		}
		return v == c.Value, true

	case CondFieldInRange:
		v, ok := e.Field(c.Field)
		if !ok {
			return false, false
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false, false
		}
		if c.Min != nil && n < *c.Min {
			return false, true
		}
		if c.Max != nil && n > *c.Max {
			return false, true
		}
		return true, true

	case CondFieldPresent:
		_, ok := e.Field(c.Field)
		return ok, true

	case CondSchedulePresent:
		return e.DeclaredSchedule != nil, true

	case CondInScheduleWindow:
		if e.DeclaredSchedule == nil {
			return false, false
		}
		return e.DeclaredSchedule.Contains(e.Timestamp), true
	}
	return false, false
}
