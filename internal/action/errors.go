package action

import "fmt"

// ValidationError rejects a draft at creation time. Nothing is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MalformedPayloadError reports a payload that is not a JSON object or that
// lacks a usable target/message key.
type MalformedPayloadError struct {
	Key    string // empty when the payload itself could not be decoded
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("malformed payload: %s", e.Reason)
	}
	return fmt.Sprintf("malformed payload: key %q %s", e.Key, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// InvalidTimeFormatError reports a time string outside the "h:mm AM" grammar.
type InvalidTimeFormatError struct {
	Value string
}

func (e *InvalidTimeFormatError) Error() string {
	return fmt.Sprintf("invalid time %q (expected format like \"9:30 PM\")", e.Value)
}

// InvalidDateFormatError reports a date string outside the "DD MM YYYY"
// grammar or naming a day that does not exist.
type InvalidDateFormatError struct {
	Value  string
	Reason string
}

func (e *InvalidDateFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid date %q: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid date %q (expected format like \"25 12 2025\")", e.Value)
}
