// Package parser converts raw scheduler log lines into task events.
//
// The line grammar is delimiter-separated key/value pairs:
//
//	task=1,type=batch,ts=100,schedule=90-110,outcome=success
//
// Delimiter, key/value separator, field names, and the required-field
// set are configuration, not hard-coded, so the parser survives log
// format drift across scheduler versions.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/schedlens/schedlens/internal/model"
)

// Config holds the line grammar configuration.
type Config struct {
	// Delimiter separates fields on a line (default ",").
	Delimiter string `yaml:"delimiter"`

	// KVSeparator separates a field name from its value (default "=").
	KVSeparator string `yaml:"kv_separator"`

	// RequiredFields is the minimal field set a line must carry.
	// Lines missing any of these are rejected with missing_field.
	RequiredFields []string `yaml:"required_fields"`

	// TaskIDField ... OutcomeField map logical roles to the physical
	// field names used in this log format version.
	TaskIDField    string `yaml:"task_id_field"`
	TaskTypeField  string `yaml:"task_type_field"`
	TimestampField string `yaml:"timestamp_field"`
	ScheduleField  string `yaml:"schedule_field"`
	OutcomeField   string `yaml:"outcome_field"`
	DurationField  string `yaml:"duration_field"`

	// TimestampLayout is an optional Go time layout. When empty,
	// timestamps are integer log time units; when set, values are
	// parsed with the layout and stored as Unix nanoseconds.
	TimestampLayout string `yaml:"timestamp_layout"`

	// ScheduleRangeSep separates the start and end of a declared
	// schedule window (default "-").
	ScheduleRangeSep string `yaml:"schedule_range_sep"`
}

// DefaultConfig returns the grammar for the v1 scheduler log format.
func DefaultConfig() Config {
	return Config{
		Delimiter:        ",",
		KVSeparator:      "=",
		RequiredFields:   []string{"task", "ts", "outcome"},
		TaskIDField:      "task",
		TaskTypeField:    "type",
		TimestampField:   "ts",
		ScheduleField:    "schedule",
		OutcomeField:     "outcome",
		DurationField:    "duration",
		ScheduleRangeSep: "-",
	}
}

// Parser converts raw lines to task events according to a grammar.
type Parser struct {
	cfg      Config
	required []string
}

// New creates a parser, validating the grammar configuration.
func New(cfg Config) (*Parser, error) {
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}
	if cfg.KVSeparator == "" {
		cfg.KVSeparator = "="
	}
	if cfg.ScheduleRangeSep == "" {
		cfg.ScheduleRangeSep = "-"
	}
	if cfg.Delimiter == cfg.KVSeparator {
		return nil, ErrBadDelimiter
	}
	if len(cfg.RequiredFields) == 0 {
		return nil, ErrNoRequiredFields
	}
	return &Parser{cfg: cfg, required: cfg.RequiredFields}, nil
}

// ParseLine converts one raw line into exactly one of a TaskEvent or a
// ParseError. Blank lines (after trimming) return nil for both: they
// are silently skipped and not counted as errors. Per-line failures are
// never fatal.
func (p *Parser) ParseLine(line string, lineNumber int64) (*model.TaskEvent, *model.ParseError) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, nil
	}

	fields, perr := p.splitFields(trimmed, line, lineNumber)
	if perr != nil {
		return nil, perr
	}

	for _, name := range p.required {
		if _, ok := fields[name]; !ok {
			return nil, &model.ParseError{
				Line:       line,
				LineNumber: lineNumber,
				Reason:     model.ReasonMissingField,
				Field:      name,
			}
		}
	}

	event := &model.TaskEvent{
		TaskID:  fields[p.cfg.TaskIDField],
		Outcome: model.ParseOutcome(fields[p.cfg.OutcomeField]),
	}
	delete(fields, p.cfg.TaskIDField)
	delete(fields, p.cfg.OutcomeField)

	if v, ok := fields[p.cfg.TaskTypeField]; ok {
		event.TaskType = v
		delete(fields, p.cfg.TaskTypeField)
	}

	ts, err := p.parseTimestamp(fields[p.cfg.TimestampField])
	if err != nil {
		return nil, &model.ParseError{
			Line:       line,
			LineNumber: lineNumber,
			Reason:     model.ReasonBadTimestamp,
			Field:      p.cfg.TimestampField,
		}
	}
	event.Timestamp = ts
	delete(fields, p.cfg.TimestampField)

	if v, ok := fields[p.cfg.ScheduleField]; ok {
		window, err := p.parseWindow(v)
		if err != nil {
			return nil, &model.ParseError{
				Line:       line,
				LineNumber: lineNumber,
				Reason:     model.ReasonBadTimestamp,
				Field:      p.cfg.ScheduleField,
			}
		}
		event.DeclaredSchedule = window
		delete(fields, p.cfg.ScheduleField)
	}

	if v, ok := fields[p.cfg.DurationField]; ok {
		d, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, &model.ParseError{
				Line:       line,
				LineNumber: lineNumber,
				Reason:     model.ReasonMalformed,
				Field:      p.cfg.DurationField,
			}
		}
		event.Duration = d
		delete(fields, p.cfg.DurationField)
	}

	if len(fields) > 0 {
		event.RawFields = fields
	}
	return event, nil
}

// splitFields tokenizes a line into a field map.
func (p *Parser) splitFields(trimmed, raw string, lineNumber int64) (map[string]string, *model.ParseError) {
	parts := strings.Split(trimmed, p.cfg.Delimiter)
	fields := make(map[string]string, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			// Tolerate trailing delimiters.
			continue
		}
		key, value, ok := strings.Cut(part, p.cfg.KVSeparator)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &model.ParseError{
				Line:       raw,
				LineNumber: lineNumber,
				Reason:     model.ReasonMalformed,
			}
		}
		fields[key] = strings.TrimSpace(value)
	}
	if len(fields) == 0 {
		return nil, &model.ParseError{
			Line:       raw,
			LineNumber: lineNumber,
			Reason:     model.ReasonMalformed,
		}
	}
	return fields, nil
}

// parseTimestamp parses a timestamp value per the configured layout.
func (p *Parser) parseTimestamp(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if p.cfg.TimestampLayout != "" {
		t, err := time.Parse(p.cfg.TimestampLayout, v)
		if err != nil {
			return 0, err
		}
		return t.UnixNano(), nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// parseWindow parses a declared schedule window "start<sep>end".
func (p *Parser) parseWindow(v string) (*model.ScheduleWindow, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(v), p.cfg.ScheduleRangeSep)
	if !ok {
		return nil, ErrBadWindow
	}
	s, err := p.parseTimestamp(start)
	if err != nil {
		return nil, err
	}
	e, err := p.parseTimestamp(end)
	if err != nil {
		return nil, err
	}
	return &model.ScheduleWindow{Start: s, End: e}, nil
}
