package parser

import (
	"testing"

	"github.com/schedlens/schedlens/internal/model"
)

func mustParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestParseLine_Valid(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("task=1,type=batch,ts=100,schedule=90-110,outcome=success", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.TaskID != "1" {
		t.Errorf("TaskID = %q, want %q", event.TaskID, "1")
	}
	if event.TaskType != "batch" {
		t.Errorf("TaskType = %q, want %q", event.TaskType, "batch")
	}
	if event.Timestamp != 100 {
		t.Errorf("Timestamp = %d, want 100", event.Timestamp)
	}
	if event.Outcome != model.OutcomeSuccess {
		t.Errorf("Outcome = %v, want success", event.Outcome)
	}
	if event.DeclaredSchedule == nil {
		t.Fatal("expected declared schedule")
	}
	if event.DeclaredSchedule.Start != 90 || event.DeclaredSchedule.End != 110 {
		t.Errorf("window = %+v, want {90 110}", *event.DeclaredSchedule)
	}
}

func TestParseLine_NoSchedule(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("task=2,type=batch,ts=200,outcome=success", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.DeclaredSchedule != nil {
		t.Errorf("expected no declared schedule, got %+v", *event.DeclaredSchedule)
	}
}

func TestParseLine_MissingField(t *testing.T) {
	p := mustParser(t)

	// Line without task_id: exactly one ParseError, no event, not fatal.
	event, perr := p.ParseLine("type=batch,ts=100,outcome=success", 7)
	if event != nil {
		t.Errorf("expected nil event, got %+v", event)
	}
	if perr == nil {
		t.Fatal("expected parse error")
	}
	if perr.Reason != model.ReasonMissingField {
		t.Errorf("Reason = %v, want missing_field", perr.Reason)
	}
	if perr.Field != "task" {
		t.Errorf("Field = %q, want %q", perr.Field, "task")
	}
	if perr.LineNumber != 7 {
		t.Errorf("LineNumber = %d, want 7", perr.LineNumber)
	}
}

func TestParseLine_BadTimestamp(t *testing.T) {
	p := mustParser(t)

	tests := []struct {
		name string
		line string
	}{
		{"non-numeric ts", "task=1,ts=abc,outcome=success"},
		{"bad window", "task=1,ts=100,schedule=90-xyz,outcome=success"},
		{"window missing separator", "task=1,ts=100,schedule=90,outcome=success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, perr := p.ParseLine(tt.line, 1)
			if event != nil {
				t.Errorf("expected nil event, got %+v", event)
			}
			if perr == nil {
				t.Fatal("expected parse error")
			}
			if perr.Reason != model.ReasonBadTimestamp {
				t.Errorf("Reason = %v, want bad_timestamp", perr.Reason)
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("this is not key value data", 1)
	if event != nil {
		t.Errorf("expected nil event, got %+v", event)
	}
	if perr == nil || perr.Reason != model.ReasonMalformed {
		t.Errorf("perr = %v, want malformed", perr)
	}
}

func TestParseLine_BlankAndWhitespace(t *testing.T) {
	p := mustParser(t)

	for _, line := range []string{"", "   ", "\t"} {
		event, perr := p.ParseLine(line, 1)
		if event != nil || perr != nil {
			t.Errorf("ParseLine(%q) = (%v, %v), want (nil, nil)", line, event, perr)
		}
	}
}

func TestParseLine_TrailingWhitespaceAndDelimiter(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("task=1,ts=100,outcome=success,   ", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.TaskID != "1" {
		t.Errorf("TaskID = %q, want %q", event.TaskID, "1")
	}
}

func TestParseLine_RawFields(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("task=1,ts=100,outcome=success,host=node-3,queue=high", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.RawFields["host"] != "node-3" {
		t.Errorf("RawFields[host] = %q, want %q", event.RawFields["host"], "node-3")
	}
	if event.RawFields["queue"] != "high" {
		t.Errorf("RawFields[queue] = %q, want %q", event.RawFields["queue"], "high")
	}
	if _, ok := event.RawFields["task"]; ok {
		t.Error("modeled field leaked into RawFields")
	}
}

func TestParseLine_Duration(t *testing.T) {
	p := mustParser(t)

	event, perr := p.ParseLine("task=1,ts=100,outcome=success,duration=42", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.Duration != 42 {
		t.Errorf("Duration = %d, want 42", event.Duration)
	}
}

func TestParseLine_CustomGrammar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = ";"
	cfg.KVSeparator = ":"
	cfg.RequiredFields = []string{"job", "at", "result"}
	cfg.TaskIDField = "job"
	cfg.TimestampField = "at"
	cfg.OutcomeField = "result"

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	event, perr := p.ParseLine("job:a1;at:500;result:failed", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.TaskID != "a1" || event.Timestamp != 500 || event.Outcome != model.OutcomeFailure {
		t.Errorf("event = %+v, want a1/500/failure", event)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = "="
	if _, err := New(cfg); err != ErrBadDelimiter {
		t.Errorf("New() error = %v, want ErrBadDelimiter", err)
	}

	cfg = DefaultConfig()
	cfg.RequiredFields = nil
	if _, err := New(cfg); err != ErrNoRequiredFields {
		t.Errorf("New() error = %v, want ErrNoRequiredFields", err)
	}
}

func TestParseLine_TimestampLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimestampLayout = "2006-01-02T15:04:05Z07:00"
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	event, perr := p.ParseLine("task=1,ts=2024-03-01T12:00:00Z,outcome=success", 1)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if event.Timestamp == 0 {
		t.Error("expected non-zero Unix nano timestamp")
	}
}
