package messages

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	assert.Equal(t, "❌ boom", FormatError(errors.New("boom")))
	assert.Contains(t, FormatConfigLoadError(errors.New("no file")), "no file")
}

func TestFormatValidationErrors(t *testing.T) {
	assert.Empty(t, FormatValidationErrors(nil))

	out := FormatValidationErrors([]error{errors.New("token is required"), errors.New("bad timezone")})
	assert.True(t, strings.HasPrefix(out, constants.MsgConfigValidationError))
	assert.Contains(t, out, "1. token is required")
	assert.Contains(t, out, "2. bad timezone")
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		userFlag bool
	}{
		{"nil", nil, "", false},
		{"validation", &action.ValidationError{Field: "date", Reason: "is in the past"}, "❌ invalid date: is in the past", true},
		{"time", &action.InvalidTimeFormatError{Value: "25:00"}, FormatError(&action.InvalidTimeFormatError{Value: "25:00"}), true},
		{"wrapped date", fmt.Errorf("create: %w", &action.InvalidDateFormatError{Value: "31 02 2026"}), "", true},
		{"forbidden", store.ErrForbidden, constants.MsgForbidden, true},
		{"storage", errors.New("database is locked"), constants.MsgInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatUserError(tt.err)
			if tt.want != "" || tt.err == nil {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Contains(t, got, "31 02 2026")
			}
			if tt.err != nil {
				assert.Equal(t, tt.userFlag, IsUserError(tt.err))
			}
		})
	}
}

func TestFormatActionList(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	date := action.Date{Year: 2026, Month: time.March, Day: 12}

	actions := []action.ScheduledAction{
		{ID: 1, Target: 123, Message: "Pay rent", Time: action.TimeOfDay{Hour: 21, Minute: 30}, Date: &date},
		{ID: 2, Target: 456, Message: "Stand-up in 5", Time: action.TimeOfDay{Hour: 9, Minute: 55}, Repeat: true},
	}

	out := FormatActionList(actions, now, time.UTC)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, fmt.Sprintf(constants.MsgActionsHeader, 2), lines[0]+"\n")
	assert.Contains(t, lines[1], "#1 → 123")
	assert.Contains(t, lines[1], "once on 12 03 2026 at 9:30 PM")
	assert.Contains(t, lines[1], "from now")
	assert.Contains(t, lines[2], "daily at 9:55 AM")

	assert.Equal(t, constants.MsgNoActions, FormatActionList(nil, now, time.UTC))
}

func TestFormatActionList_Truncates(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var actions []action.ScheduledAction
	for i := 0; i < constants.DefaultListLimit+3; i++ {
		actions = append(actions, action.ScheduledAction{
			ID: int64(i + 1), Target: 1, Message: "x",
			Time: action.TimeOfDay{Hour: 10}, Repeat: true,
		})
	}

	out := FormatActionList(actions, now, time.UTC)
	assert.Contains(t, out, "…and 3 more")
}

func TestFormatActionCreated(t *testing.T) {
	next := time.Date(2026, 3, 12, 21, 30, 0, 0, time.UTC)
	out := FormatActionCreated(7, action.KindOnce, next)
	assert.Equal(t, "✅ Scheduled action #7 (once), next delivery Thu 12 Mar 2026 9:30 PM UTC", out)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("  short  "))
	assert.Equal(t, "two lines", Preview("two\nlines"))

	long := strings.Repeat("é", 60)
	got := Preview(long)
	assert.Equal(t, maxPreview, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
