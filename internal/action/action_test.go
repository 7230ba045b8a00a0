package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFromRecord_OneShot(t *testing.T) {
	created := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	a, err := FromRecord(Record{
		ID:        7,
		CreatedBy: 1,
		Payload:   `{"target": 123, "message": "wake up", "extra": [1, 2]}`,
		Time:      "7:45 AM",
		Date:      strPtr("01 01 2026"),
		CreatedOn: created,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, int64(123), a.Target)
	assert.Equal(t, "wake up", a.Message)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 45}, a.Time)
	require.NotNil(t, a.Date)
	assert.Equal(t, Date{2026, time.January, 1}, *a.Date)
	assert.False(t, a.Repeat)
	assert.Equal(t, KindOnce, a.Kind())
	assert.Equal(t, created, a.CreatedOn)

	loc := time.UTC
	assert.Equal(t, time.Date(2026, 1, 1, 7, 45, 0, 0, loc), a.Date.At(a.Time, loc))
}

func TestFromRecord_RepeatingIgnoresDate(t *testing.T) {
	a, err := FromRecord(Record{
		ID:      1,
		Payload: `{"target": 5, "message": "hi"}`,
		Time:    "9:00 AM",
		Date:    strPtr("not a date"),
		Repeat:  true,
	})
	require.NoError(t, err)
	assert.Nil(t, a.Date)
	assert.Equal(t, KindDaily, a.Kind())
}

func TestFromRecord_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing target",
			record: Record{Payload: `{"message": "x"}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "target", pErr.Key)
			},
		},
		{
			name:   "target wrong type",
			record: Record{Payload: `{"target": "abc", "message": "x"}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "target", pErr.Key)
			},
		},
		{
			name:   "message null",
			record: Record{Payload: `{"target": 1, "message": null}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "message", pErr.Key)
			},
		},
		{
			name:   "message wrong type",
			record: Record{Payload: `{"target": 1, "message": 42}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "message", pErr.Key)
			},
		},
		{
			name:   "message empty",
			record: Record{Payload: `{"target": 1, "message": "  "}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "message", pErr.Key)
			},
		},
		{
			name:   "target zero",
			record: Record{Payload: `{"target": 0, "message": "x"}`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "target", pErr.Key)
			},
		},
		{
			name:   "payload not json",
			record: Record{Payload: `target=1`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
				assert.Empty(t, pErr.Key)
			},
		},
		{
			name:   "payload json null",
			record: Record{Payload: `null`, Time: "9:00 AM", Repeat: true},
			check: func(t *testing.T, err error) {
				var pErr *MalformedPayloadError
				require.ErrorAs(t, err, &pErr)
			},
		},
		{
			name:   "bad time",
			record: Record{Payload: `{"target": 1, "message": "x"}`, Time: "21:00", Repeat: true},
			check: func(t *testing.T, err error) {
				var tErr *InvalidTimeFormatError
				require.ErrorAs(t, err, &tErr)
			},
		},
		{
			name:   "one-shot without date",
			record: Record{Payload: `{"target": 1, "message": "x"}`, Time: "9:00 PM"},
			check: func(t *testing.T, err error) {
				var dErr *InvalidDateFormatError
				require.ErrorAs(t, err, &dErr)
			},
		},
		{
			name:   "one-shot bad date",
			record: Record{Payload: `{"target": 1, "message": "x"}`, Time: "9:00 PM", Date: strPtr("2025-12-25")},
			check: func(t *testing.T, err error) {
				var dErr *InvalidDateFormatError
				require.ErrorAs(t, err, &dErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRecord(tt.record)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFromDraft_NormalizesMessage(t *testing.T) {
	a, err := FromDraft(Draft{
		CreatedBy: 1,
		Target:    2,
		Message:   "  café  ",
		Time:      "9:30 pm",
		Date:      "25 12 2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "café", a.Message)
	assert.Equal(t, TimeOfDay{Hour: 21, Minute: 30}, a.Time)
}

func TestToRecord_Canonical(t *testing.T) {
	a, err := FromDraft(Draft{CreatedBy: 1, Target: 99, Message: "hello", Time: "09:05 am", Date: "01 02 2026"})
	require.NoError(t, err)

	r, err := a.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, "9:05 AM", r.Time)
	require.NotNil(t, r.Date)
	assert.Equal(t, "01 02 2026", *r.Date)
	assert.JSONEq(t, `{"target": 99, "message": "hello"}`, r.Payload)

	back, err := FromRecord(r)
	require.NoError(t, err)
	assert.Equal(t, a.Target, back.Target)
	assert.Equal(t, a.Message, back.Message)
	assert.Equal(t, a.Time, back.Time)
	assert.Equal(t, *a.Date, *back.Date)
}

func TestValidate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 12, 31, 12, 0, 0, 0, loc)
	future := Date{2026, time.January, 1}
	past := Date{2025, time.December, 30}

	tests := []struct {
		name  string
		a     ScheduledAction
		field string
	}{
		{"empty message", ScheduledAction{Target: 1, Time: TimeOfDay{Hour: 9}, Date: &future}, "message"},
		{"missing target", ScheduledAction{Message: "x", Time: TimeOfDay{Hour: 9}, Date: &future}, "target"},
		{"past one-shot", ScheduledAction{Target: 1, Message: "x", Time: TimeOfDay{Hour: 9}, Date: &past}, "date"},
		{"earlier today", ScheduledAction{Target: 1, Message: "x", Time: TimeOfDay{Hour: 11, Minute: 59}, Date: &Date{2025, time.December, 31}}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.a, now, loc)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	ok := ScheduledAction{Target: 1, Message: "x", Time: TimeOfDay{Hour: 9}, Date: &future}
	assert.NoError(t, Validate(ok, now, loc))

	// Repeating actions are never "in the past".
	daily := ScheduledAction{Target: 1, Message: "x", Time: TimeOfDay{Hour: 1}, Repeat: true}
	assert.NoError(t, Validate(daily, now, loc))
}

func TestFirstOccurrence(t *testing.T) {
	loc := time.UTC
	daily := ScheduledAction{Repeat: true, Time: TimeOfDay{Hour: 9}}

	t.Run("later today", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 8, 0, 0, 0, loc)
		assert.Equal(t, Date{2025, time.June, 10}, daily.FirstOccurrence(now, loc))
	})

	t.Run("already passed today", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 9, 0, 1, 0, loc)
		assert.Equal(t, Date{2025, time.June, 11}, daily.FirstOccurrence(now, loc))
	})

	t.Run("exactly now", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
		assert.Equal(t, Date{2025, time.June, 10}, daily.FirstOccurrence(now, loc))
	})

	t.Run("already fired this occurrence", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
		fired := now
		a := daily
		a.LastTriggeredAt = &fired
		assert.Equal(t, Date{2025, time.June, 11}, a.FirstOccurrence(now, loc))
	})

	t.Run("one-shot keeps its date", func(t *testing.T) {
		d := Date{2025, time.January, 1}
		once := ScheduledAction{Time: TimeOfDay{Hour: 9}, Date: &d}
		now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
		assert.Equal(t, d, once.FirstOccurrence(now, loc))
	})
}

func TestNextOccurrence_SkipsMissedDays(t *testing.T) {
	loc := time.UTC
	daily := ScheduledAction{Repeat: true, Time: TimeOfDay{Hour: 9}}
	fired := Date{2025, time.December, 31}

	now := time.Date(2025, 12, 31, 9, 0, 5, 0, loc)
	assert.Equal(t, Date{2026, time.January, 1}, daily.NextOccurrence(fired, now, loc))

	// Five days of downtime: next is the first future 9:00, not a backlog.
	now = time.Date(2026, 1, 5, 10, 0, 0, 0, loc)
	assert.Equal(t, Date{2026, time.January, 6}, daily.NextOccurrence(fired, now, loc))
}
