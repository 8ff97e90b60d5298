package model

import "fmt"

// ParseReason is the reason code attached to a rejected log line.
type ParseReason uint8

const (
	ReasonMalformed ParseReason = iota
	ReasonMissingField
	ReasonBadTimestamp
)

// String returns the reason code name.
func (r ParseReason) String() string {
	switch r {
	case ReasonMissingField:
		return "missing_field"
	case ReasonBadTimestamp:
		return "bad_timestamp"
	default:
		return "malformed"
	}
}

// ParseError records a log line the parser rejected. Parse errors are
// accumulated in a side channel and never enter the event stream.
type ParseError struct {
	// Line is the offending raw line.
	Line string

	// LineNumber is the 1-based position in the source.
	LineNumber int64

	// Reason is the rejection reason code.
	Reason ParseReason

	// Field names the offending field for missing_field and
	// bad_timestamp reasons.
	Field string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: %s (%s)", e.LineNumber, e.Reason, e.Field)
	}
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Reason)
}
