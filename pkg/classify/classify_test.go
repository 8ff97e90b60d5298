package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schedlens/schedlens/internal/model"
)

func event(ts int64, window *model.ScheduleWindow) *model.TaskEvent {
	return &model.TaskEvent{
		TaskID:           "t1",
		TaskType:         "batch",
		Timestamp:        ts,
		DeclaredSchedule: window,
		Outcome:          model.OutcomeSuccess,
	}
}

func TestDefault_ReferenceRules(t *testing.T) {
	rs := Default()

	tests := []struct {
		name string
		ev   *model.TaskEvent
		want model.ScheduleStatus
	}{
		{"in declared window", event(100, &model.ScheduleWindow{Start: 90, End: 110}), model.StatusScheduled},
		{"window start boundary", event(90, &model.ScheduleWindow{Start: 90, End: 110}), model.StatusScheduled},
		{"window end boundary", event(110, &model.ScheduleWindow{Start: 90, End: 110}), model.StatusScheduled},
		{"before declared window", event(50, &model.ScheduleWindow{Start: 90, End: 110}), model.StatusUnscheduled},
		{"after declared window", event(200, &model.ScheduleWindow{Start: 90, End: 110}), model.StatusUnscheduled},
		{"no declared schedule", event(200, nil), model.StatusUnscheduled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rs.Classify(tt.ev)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Two rules both match; the first must win regardless of the
	// second's status.
	rs, err := Compile([]RuleSpec{
		{
			Name:   "first",
			When:   []Condition{{Kind: CondFieldEquals, Field: "type", Value: "batch"}},
			Status: "scheduled",
		},
		{
			Name:   "second",
			When:   []Condition{{Kind: CondFieldPresent, Field: "task"}},
			Status: "unscheduled",
		},
	})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if got := rs.Classify(event(1, nil)); got != model.StatusScheduled {
		t.Errorf("Classify() = %v, want scheduled (first rule)", got)
	}
}

func TestClassify_NoMatchIsUnknown(t *testing.T) {
	rs, err := Compile([]RuleSpec{
		{
			Name:   "never",
			When:   []Condition{{Kind: CondFieldEquals, Field: "type", Value: "stream"}},
			Status: "scheduled",
		},
	})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if got := rs.Classify(event(1, nil)); got != model.StatusUnknown {
		t.Errorf("Classify() = %v, want unknown", got)
	}
}

func TestClassify_UnevaluableConditionFallsThrough(t *testing.T) {
	// A range condition over a missing field cannot be evaluated: the
	// rule must not match even when negated, and the event must end up
	// unknown rather than silently unscheduled.
	rs, err := Compile([]RuleSpec{
		{
			Name:   "range over missing field",
			When:   []Condition{{Kind: CondFieldInRange, Field: "retries", Min: i64(0), Max: i64(3), Negate: true}},
			Status: "scheduled",
		},
	})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if got := rs.Classify(event(1, nil)); got != model.StatusUnknown {
		t.Errorf("Classify() = %v, want unknown", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	rs := Default()
	ev := event(100, &model.ScheduleWindow{Start: 90, End: 110})

	first := rs.Classify(ev)
	for i := 0; i < 100; i++ {
		if got := rs.Classify(ev); got != first {
			t.Fatalf("iteration %d: Classify() = %v, want %v", i, got, first)
		}
	}
}

func TestClassify_RangeAndRawFields(t *testing.T) {
	rs, err := Compile([]RuleSpec{
		{
			Name: "high priority window",
			When: []Condition{
				{Kind: CondFieldEquals, Field: "queue", Value: "high"},
				{Kind: CondFieldInRange, Field: "ts", Min: i64(0), Max: i64(1000)},
			},
			Status: "scheduled",
		},
	})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	ev := event(500, nil)
	ev.RawFields = map[string]string{"queue": "high"}
	if got := rs.Classify(ev); got != model.StatusScheduled {
		t.Errorf("Classify() = %v, want scheduled", got)
	}

	ev.RawFields["queue"] = "low"
	if got := rs.Classify(ev); got != model.StatusUnknown {
		t.Errorf("Classify() = %v, want unknown", got)
	}
}

func TestCompile_Validation(t *testing.T) {
	if _, err := Compile(nil); err != ErrEmptyRuleset {
		t.Errorf("Compile(nil) error = %v, want ErrEmptyRuleset", err)
	}

	_, err := Compile([]RuleSpec{
		{Name: "bad", When: []Condition{{Kind: "field-matches-regex"}}, Status: "scheduled"},
	})
	if err == nil {
		t.Error("expected error for unknown condition kind")
	}
}

func TestLoadFile(t *testing.T) {
	doc := `
version: 1
rules:
  - name: retried tasks are off-plan
    when:
      - kind: field-equals
        field: outcome
        value: retry
    status: unscheduled
  - name: declared and in window
    when:
      - kind: schedule-present
      - kind: in-schedule-window
    status: scheduled
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rs.Len())
	}

	// Rule order from the file is preserved: a retried in-window task
	// hits the first rule.
	ev := event(100, &model.ScheduleWindow{Start: 90, End: 110})
	ev.Outcome = model.OutcomeRetry
	if got := rs.Classify(ev); got != model.StatusUnscheduled {
		t.Errorf("Classify() = %v, want unscheduled (file order preserved)", got)
	}
}

func i64(v int64) *int64 { return &v }
