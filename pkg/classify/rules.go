// Package classify assigns a schedule status to parsed task events by
// evaluating an ordered, externally supplied ruleset.
package classify

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/schedlens/schedlens/internal/model"
)

// Condition kinds. The comparator set is closed: conditions are
// interpreted, never compiled to code.
const (
	CondFieldEquals      = "field-equals"
	CondFieldInRange     = "field-in-range"
	CondFieldPresent     = "field-present"
	CondSchedulePresent  = "schedule-present"
	CondInScheduleWindow = "in-schedule-window"
)

var (
	// ErrUnknownCondition is returned for a condition kind outside the
	// closed comparator set.
	ErrUnknownCondition = errors.New("classify: unknown condition kind")

	// ErrEmptyRuleset is returned when a ruleset has no rules.
	ErrEmptyRuleset = errors.New("classify: ruleset has no rules")
)

// Condition is one predicate over task event fields.
type Condition struct {
	// Kind selects the comparator.
	Kind string `yaml:"kind"`

	// Field is the logical field name, for field-* comparators.
	Field string `yaml:"field,omitempty"`

	// Value is the expected value for field-equals.
	Value string `yaml:"value,omitempty"`

	// Min and Max bound field-in-range (inclusive). A nil bound is open.
	Min *int64 `yaml:"min,omitempty"`
	Max *int64 `yaml:"max,omitempty"`

	// Negate inverts the comparator. A condition that cannot be
	// evaluated stays non-matching even when negated.
	Negate bool `yaml:"negate,omitempty"`
}

// RuleSpec is the external, declarative form of one rule. All
// conditions must match (AND) for the rule's status to apply.
type RuleSpec struct {
	Name   string      `yaml:"name"`
	When   []Condition `yaml:"when"`
	Status string      `yaml:"status"`
}

// rulesetFile is the on-disk ruleset document.
type rulesetFile struct {
	Version int        `yaml:"version"`
	Rules   []RuleSpec `yaml:"rules"`
}

// Ruleset is a compiled, ordered list of rules evaluated
// first-match-wins. Evaluation order is a documented contract.
type Ruleset struct {
	rules []compiledRule
}

type compiledRule struct {
	name   string
	when   []Condition
	status model.ScheduleStatus
}

// Compile validates and compiles rule specs, preserving order.
func Compile(specs []RuleSpec) (*Ruleset, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyRuleset
	}
	rs := &Ruleset{rules: make([]compiledRule, 0, len(specs))}
	for i, spec := range specs {
		for _, c := range spec.When {
			switch c.Kind {
			case CondFieldEquals, CondFieldInRange, CondFieldPresent,
				CondSchedulePresent, CondInScheduleWindow:
			default:
				return nil, fmt.Errorf("%w: rule %d (%s) kind %q",
					ErrUnknownCondition, i, spec.Name, c.Kind)
			}
		}
		rs.rules = append(rs.rules, compiledRule{
			name:   spec.Name,
			when:   spec.When,
			status: model.ParseScheduleStatus(spec.Status),
		})
	}
	return rs, nil
}

// LoadFile loads and compiles a YAML ruleset file.
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classify: read ruleset: %w", err)
	}
	var doc rulesetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("classify: parse ruleset: %w", err)
	}
	return Compile(doc.Rules)
}

// Default returns the reference ruleset: in-window declared schedules
// are scheduled, off-window declared schedules are unscheduled, tasks
// without a declared schedule are unscheduled, anything the rules
// cannot decide falls through to unknown.
func Default() *Ruleset {
	rs, err := Compile([]RuleSpec{
		{
			Name: "declared-and-in-window",
			When: []Condition{
				{Kind: CondSchedulePresent},
				{Kind: CondInScheduleWindow},
			},
			Status: "scheduled",
		},
		{
			Name: "declared-but-off-window",
			When: []Condition{
				{Kind: CondSchedulePresent},
				{Kind: CondInScheduleWindow, Negate: true},
			},
			Status: "unscheduled",
		},
		{
			Name: "no-declared-schedule",
			When: []Condition{
				{Kind: CondSchedulePresent, Negate: true},
			},
			Status: "unscheduled",
		},
	})
	if err != nil {
		panic(err) // static ruleset, compile cannot fail
	}
	return rs
}

// Len returns the number of rules.
func (rs *Ruleset) Len() int {
	return len(rs.rules)
}

// Names returns the rule names in evaluation order.
func (rs *Ruleset) Names() []string {
	names := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		names[i] = r.name
	}
	return names
}
