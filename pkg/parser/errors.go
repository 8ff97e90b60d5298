package parser

import "errors"

var (
	// ErrBadDelimiter is returned when the configured delimiter and
	// key/value separator collide.
	ErrBadDelimiter = errors.New("parser: delimiter and key/value separator must differ")

	// ErrNoRequiredFields is returned when the required-field list is
	// empty; a grammar with no required fields cannot reject anything.
	ErrNoRequiredFields = errors.New("parser: required-field list is empty")

	// ErrBadWindow is returned when a declared schedule window is not
	// "start<sep>end".
	ErrBadWindow = errors.New("parser: malformed schedule window")
)
