package messages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/store"
)

// FormatError formats a general error message with error prefix.
func FormatError(err error) string {
	return fmt.Sprintf(constants.MsgErrorFormat, err)
}

// FormatConfigLoadError formats a configuration loading error message.
func FormatConfigLoadError(err error) string {
	return fmt.Sprintf(constants.MsgConfigLoadError, err)
}

// FormatValidationErrors formats a list of validation errors with numbering.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	builder := &strings.Builder{}
	builder.WriteString(constants.MsgConfigValidationError)
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf(constants.MsgConfigValidatePrefix, fmt.Sprintf("%d. %v", i+1, err)))
	}

	return builder.String()
}

// FormatUserError turns an error from a chat operation into a reply. Input
// problems are echoed back; anything else is reported as an internal error
// so storage details never reach the chat.
func FormatUserError(err error) string {
	var (
		validation *action.ValidationError
		badTime    *action.InvalidTimeFormatError
		badDate    *action.InvalidDateFormatError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation), errors.As(err, &badTime), errors.As(err, &badDate):
		return FormatError(err)
	case errors.Is(err, store.ErrForbidden):
		return constants.MsgForbidden
	default:
		return constants.MsgInternalError
	}
}

// IsUserError reports whether err is caused by the user's input.
func IsUserError(err error) bool {
	var (
		validation *action.ValidationError
		badTime    *action.InvalidTimeFormatError
		badDate    *action.InvalidDateFormatError
	)
	return errors.As(err, &validation) || errors.As(err, &badTime) || errors.As(err, &badDate) ||
		errors.Is(err, store.ErrForbidden) || errors.Is(err, store.ErrNotFound)
}
