// Package model defines the core data structures for SchedLens.
package model

import "strconv"

// ScheduleStatus is the classification assigned to a task event.
type ScheduleStatus uint8

const (
	// StatusUnclassified is the zero value before the classifier runs.
	StatusUnclassified ScheduleStatus = iota
	// StatusScheduled marks a task that ran inside its declared window.
	StatusScheduled
	// StatusUnscheduled marks a task that ran without a declared schedule
	// or outside its declared window.
	StatusUnscheduled
	// StatusUnknown marks a task the ruleset could not classify.
	StatusUnknown
)

// String returns the status name.
func (s ScheduleStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusUnscheduled:
		return "unscheduled"
	case StatusUnknown:
		return "unknown"
	default:
		return "unclassified"
	}
}

// ParseScheduleStatus parses a status name. Unrecognized names map to
// StatusUnknown so a bad ruleset entry never silently becomes unscheduled.
func ParseScheduleStatus(s string) ScheduleStatus {
	switch s {
	case "scheduled":
		return StatusScheduled
	case "unscheduled":
		return StatusUnscheduled
	default:
		return StatusUnknown
	}
}

// Outcome is the recorded result of a task execution.
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeRetry
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// ParseOutcome parses an outcome name. Unrecognized values map to
// OutcomeUnknown; an odd outcome string is not a parse failure.
func ParseOutcome(s string) Outcome {
	switch s {
	case "success", "ok", "completed":
		return OutcomeSuccess
	case "failure", "failed", "error":
		return OutcomeFailure
	case "retry", "retried":
		return OutcomeRetry
	default:
		return OutcomeUnknown
	}
}

// ScheduleWindow is a declared execution window in log time units.
type ScheduleWindow struct {
	Start int64
	End   int64
}

// Contains reports whether ts falls inside the window, inclusive on
// both ends.
func (w ScheduleWindow) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// TaskEvent is one normalized scheduler log record. Events are created
// by the parser and never mutated afterward, except for Status which is
// assigned exactly once by the classifier.
type TaskEvent struct {
	// TaskID identifies the task instance.
	TaskID string

	// TaskType is the job class, if the log carries one.
	TaskType string

	// Timestamp in log time units (configured epoch units, or Unix
	// nanoseconds when a timestamp layout is configured).
	Timestamp int64

	// Duration of the run in log time units, zero if absent.
	Duration int64

	// DeclaredSchedule is present only when the log line carries a
	// schedule descriptor.
	DeclaredSchedule *ScheduleWindow

	// Outcome of the execution.
	Outcome Outcome

	// RawFields holds fields not otherwise modeled, keyed by the
	// field name as it appeared in the log line.
	RawFields map[string]string

	// Status assigned by the classifier.
	Status ScheduleStatus
}

// Field resolves a logical field name against the modeled fields first,
// then RawFields. Used by the classifier's rule interpreter.
func (e *TaskEvent) Field(name string) (string, bool) {
	switch name {
	case "task", "task_id":
		return e.TaskID, e.TaskID != ""
	case "type", "task_type":
		return e.TaskType, e.TaskType != ""
	case "ts", "timestamp":
		return strconv.FormatInt(e.Timestamp, 10), true
	case "duration":
		return strconv.FormatInt(e.Duration, 10), e.Duration != 0
	case "outcome":
		return e.Outcome.String(), true
	}
	v, ok := e.RawFields[name]
	return v, ok
}
