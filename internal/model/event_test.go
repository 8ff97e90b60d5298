package model

import "testing"

func TestScheduleStatus_String(t *testing.T) {
	tests := []struct {
		status ScheduleStatus
		want   string
	}{
		{StatusUnclassified, "unclassified"},
		{StatusScheduled, "scheduled"},
		{StatusUnscheduled, "unscheduled"},
		{StatusUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("ScheduleStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestParseScheduleStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ScheduleStatus
	}{
		{"scheduled", StatusScheduled},
		{"unscheduled", StatusUnscheduled},
		{"unknown", StatusUnknown},
		// A typo in a ruleset must not silently become unscheduled.
		{"unsheduled", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseScheduleStatus(tt.in); got != tt.want {
			t.Errorf("ParseScheduleStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want Outcome
	}{
		{"success", OutcomeSuccess},
		{"ok", OutcomeSuccess},
		{"completed", OutcomeSuccess},
		{"failure", OutcomeFailure},
		{"failed", OutcomeFailure},
		{"error", OutcomeFailure},
		{"retry", OutcomeRetry},
		{"retried", OutcomeRetry},
		{"whatever", OutcomeUnknown},
	}
	for _, tt := range tests {
		if got := ParseOutcome(tt.in); got != tt.want {
			t.Errorf("ParseOutcome(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScheduleWindow_Contains(t *testing.T) {
	w := ScheduleWindow{Start: 90, End: 110}

	tests := []struct {
		ts   int64
		want bool
	}{
		{89, false},
		{90, true},
		{100, true},
		{110, true},
		{111, false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.ts); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.ts, got, tt.want)
		}
	}
}

func TestTaskEvent_Field(t *testing.T) {
	e := &TaskEvent{
		TaskID:    "t9",
		TaskType:  "batch",
		Timestamp: 1500,
		Duration:  42,
		Outcome:   OutcomeFailure,
		RawFields: map[string]string{"host": "node-3"},
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"task", "t9", true},
		{"task_id", "t9", true},
		{"type", "batch", true},
		{"ts", "1500", true},
		{"timestamp", "1500", true},
		{"duration", "42", true},
		{"outcome", "failure", true},
		{"host", "node-3", true},
		{"queue", "", false},
	}
	for _, tt := range tests {
		got, ok := e.Field(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Field(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}

	// Empty modeled fields report as absent.
	empty := &TaskEvent{}
	if _, ok := empty.Field("type"); ok {
		t.Error("Field(type) ok = true on empty event")
	}
	if _, ok := empty.Field("duration"); ok {
		t.Error("Field(duration) ok = true on zero duration")
	}
}

func TestParseError_Error(t *testing.T) {
	e := &ParseError{LineNumber: 7, Reason: ReasonMissingField, Field: "task"}
	if got, want := e.Error(), "line 7: missing_field (task)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e = &ParseError{LineNumber: 3, Reason: ReasonMalformed}
	if got, want := e.Error(), "line 3: malformed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
