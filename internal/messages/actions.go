// Package messages renders the text dmbot shows to chat users and on the
// command line.
package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/dustin/go-humanize"
)

// InstantLayout is how fire instants are shown to users.
const InstantLayout = "Mon 02 Jan 2006 3:04 PM MST"

// maxPreview bounds the message preview in list lines, in runes.
const maxPreview = 40

// FormatActionCreated confirms a newly created action.
func FormatActionCreated(id int64, kind string, next time.Time) string {
	return fmt.Sprintf(constants.MsgActionCreated, id, kind, next.Format(InstantLayout))
}

// FormatActionLine renders one action as a single list line.
func FormatActionLine(a action.ScheduledAction, now time.Time, loc *time.Location) string {
	next := a.FirstOccurrence(now, loc).At(a.Time, loc)

	var when string
	if a.Repeat {
		when = "daily at " + a.Time.String()
	} else {
		when = "once on " + a.Date.String() + " at " + a.Time.String()
	}

	return fmt.Sprintf("#%d → %d: %q, %s (next %s)",
		a.ID, a.Target, Preview(a.Message), when, humanize.RelTime(next, now, "ago", "from now"))
}

// FormatActionList renders the pending actions of one user.
func FormatActionList(actions []action.ScheduledAction, now time.Time, loc *time.Location) string {
	if len(actions) == 0 {
		return constants.MsgNoActions
	}

	builder := &strings.Builder{}
	builder.WriteString(fmt.Sprintf(constants.MsgActionsHeader, len(actions)))

	shown := actions
	if len(shown) > constants.DefaultListLimit {
		shown = shown[:constants.DefaultListLimit]
	}
	for _, a := range shown {
		builder.WriteString(FormatActionLine(a, now, loc))
		builder.WriteString("\n")
	}
	if rest := len(actions) - len(shown); rest > 0 {
		builder.WriteString(fmt.Sprintf("…and %s more\n", humanize.Comma(int64(rest))))
	}

	return strings.TrimRight(builder.String(), "\n")
}

// Preview shortens a message for list output.
func Preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxPreview {
		return s
	}
	return string(runes[:maxPreview-1]) + "…"
}
