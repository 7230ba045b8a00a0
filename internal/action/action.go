// Package action defines scheduled direct-message actions: the raw rows the
// store keeps, the typed ScheduledAction the scheduler arms, and the pure
// conversions between them.
//
// Nothing in this package performs I/O or reads the clock; callers pass the
// current instant in where it matters.
package action

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	KindOnce  = "once"
	KindDaily = "daily"
)

// Record is an action row as persisted.
type Record struct {
	ID              int64
	CreatedBy       int64
	Payload         string
	Time            string
	Date            *string
	Repeat          bool
	TriggerCount    int
	LastTriggeredAt *time.Time
	RetiredAt       *time.Time
	CancelledAt     *time.Time
	CreatedOn       time.Time
}

// Active reports whether the row is still eligible for scheduling.
func (r Record) Active() bool {
	if r.RetiredAt != nil || r.CancelledAt != nil {
		return false
	}
	return r.Repeat || r.TriggerCount == 0
}

// Draft is an action request before it has an id.
type Draft struct {
	CreatedBy int64
	Target    int64
	Message   string
	Time      string
	Date      string // ignored when Repeat is set
	Repeat    bool
}

// ScheduledAction is a validated, typed action.
type ScheduledAction struct {
	ID              int64
	CreatedBy       int64
	Target          int64
	Message         string
	Time            TimeOfDay
	Date            *Date // nil for repeating actions
	Repeat          bool
	TriggerCount    int
	LastTriggeredAt *time.Time
	CreatedOn       time.Time
}

// Kind returns KindDaily or KindOnce.
func (a ScheduledAction) Kind() string {
	if a.Repeat {
		return KindDaily
	}
	return KindOnce
}

// FromRecord converts a stored row into a ScheduledAction.
func FromRecord(r Record) (ScheduledAction, error) {
	target, message, err := DecodePayload(r.Payload)
	if err != nil {
		return ScheduledAction{}, err
	}

	tod, err := ParseTime(r.Time)
	if err != nil {
		return ScheduledAction{}, err
	}

	a := ScheduledAction{
		ID:              r.ID,
		CreatedBy:       r.CreatedBy,
		Target:          target,
		Message:         message,
		Time:            tod,
		Repeat:          r.Repeat,
		TriggerCount:    r.TriggerCount,
		LastTriggeredAt: r.LastTriggeredAt,
		CreatedOn:       r.CreatedOn,
	}

	if !r.Repeat {
		if r.Date == nil {
			return ScheduledAction{}, &InvalidDateFormatError{Reason: "one-shot action has no date"}
		}
		d, err := ParseDate(*r.Date)
		if err != nil {
			return ScheduledAction{}, err
		}
		a.Date = &d
	}

	return a, nil
}

// FromDraft parses the textual parts of a draft. The result has no ID.
func FromDraft(d Draft) (ScheduledAction, error) {
	tod, err := ParseTime(d.Time)
	if err != nil {
		return ScheduledAction{}, err
	}

	a := ScheduledAction{
		CreatedBy: d.CreatedBy,
		Target:    d.Target,
		Message:   NormalizeMessage(d.Message),
		Time:      tod,
		Repeat:    d.Repeat,
	}

	if !d.Repeat {
		date, err := ParseDate(d.Date)
		if err != nil {
			return ScheduledAction{}, err
		}
		a.Date = &date
	}

	return a, nil
}

// ToRecord renders a into its stored form using the canonical layouts.
func (a ScheduledAction) ToRecord() (Record, error) {
	payload, err := EncodePayload(a.Target, a.Message)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		ID:              a.ID,
		CreatedBy:       a.CreatedBy,
		Payload:         payload,
		Time:            a.Time.String(),
		Repeat:          a.Repeat,
		TriggerCount:    a.TriggerCount,
		LastTriggeredAt: a.LastTriggeredAt,
		CreatedOn:       a.CreatedOn,
	}
	if a.Date != nil {
		s := a.Date.String()
		r.Date = &s
	}
	return r, nil
}

// Validate checks the parts of a that depend on the current instant.
// User existence is checked by the store.
func Validate(a ScheduledAction, now time.Time, loc *time.Location) error {
	if a.Message == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if a.Target == 0 {
		return &ValidationError{Field: "target", Reason: "is required"}
	}
	if !a.Repeat {
		if a.Date == nil {
			return &ValidationError{Field: "date", Reason: "is required for a one-shot action"}
		}
		if at := a.Date.At(a.Time, loc); at.Before(now) {
			return &ValidationError{Field: "date", Reason: "fire time " + at.Format("2006-01-02 15:04") + " is in the past"}
		}
	}
	return nil
}

// FirstOccurrence returns the date the action should be armed for at now.
// One-shot actions always return their fixed date, even when overdue.
// Repeating actions start from today and move forward a day at a time until
// the instant is not before now and falls after the last successful firing.
func (a ScheduledAction) FirstOccurrence(now time.Time, loc *time.Location) Date {
	if !a.Repeat && a.Date != nil {
		return *a.Date
	}

	if loc == nil {
		loc = time.Local
	}

	d := DateOf(now.In(loc))
	for {
		at := d.At(a.Time, loc)
		if !at.Before(now) && (a.LastTriggeredAt == nil || at.After(*a.LastTriggeredAt)) {
			return d
		}
		d = d.AddDays(1)
	}
}

// NextOccurrence returns the first day after fired whose instant is not
// before now. Missed days are skipped, never fired.
func (a ScheduledAction) NextOccurrence(fired Date, now time.Time, loc *time.Location) Date {
	d := fired.AddDays(1)
	for d.At(a.Time, loc).Before(now) {
		d = d.AddDays(1)
	}
	return d
}

// NormalizeMessage applies NFC normalization and trims surrounding space.
func NormalizeMessage(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

type payload struct {
	Target  int64  `json:"target"`
	Message string `json:"message"`
}

// EncodePayload builds the stored JSON payload.
func EncodePayload(target int64, message string) (string, error) {
	data, err := json.Marshal(payload{Target: target, Message: message})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePayload extracts target and message from a stored JSON payload.
// Keys other than target and message are ignored.
func DecodePayload(raw string) (int64, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return 0, "", &MalformedPayloadError{Reason: "not a JSON object", Err: err}
	}
	if fields == nil {
		return 0, "", &MalformedPayloadError{Reason: "not a JSON object"}
	}

	rawTarget, ok := fields["target"]
	if !ok {
		return 0, "", &MalformedPayloadError{Key: "target", Reason: "is missing"}
	}
	var target int64
	if isNull(rawTarget) {
		return 0, "", &MalformedPayloadError{Key: "target", Reason: "is null"}
	}
	if err := json.Unmarshal(rawTarget, &target); err != nil {
		return 0, "", &MalformedPayloadError{Key: "target", Reason: "is not an integer", Err: err}
	}
	if target <= 0 {
		return 0, "", &MalformedPayloadError{Key: "target", Reason: "is not a user id"}
	}

	rawMessage, ok := fields["message"]
	if !ok {
		return 0, "", &MalformedPayloadError{Key: "message", Reason: "is missing"}
	}
	var message string
	if isNull(rawMessage) {
		return 0, "", &MalformedPayloadError{Key: "message", Reason: "is null"}
	}
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		return 0, "", &MalformedPayloadError{Key: "message", Reason: "is not a string", Err: err}
	}
	if strings.TrimSpace(message) == "" {
		return 0, "", &MalformedPayloadError{Key: "message", Reason: "is empty"}
	}

	return target, message, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
