package constants

// Chat replies
const (
	// MsgWelcome greets a user on /start.
	MsgWelcome = "👋 Hi! I can send direct messages for you at a set time, once or every day.\nSend /help to see how."

	// MsgHelp lists the chat commands.
	MsgHelp = `📬 dmbot

/dm_once <user> | <message> | <time> | <date>
    Send <message> to <user> once.
    Example: /dm_once me | Pay rent | 9:30 AM | 01 02 2026

/dm_daily <user> | <message> | <time>
    Send <message> to <user> every day.
    Example: /dm_daily 123456789 | Stand-up in 5 | 9:55 AM

/dm_list - Show your pending actions
/dm_cancel <id> - Cancel one of your actions
/help - Show this help

<user> is a numeric Telegram user id or "me". The user must have sent /start to this bot.
Times use the 12-hour clock ("9:30 PM"); dates are "DD MM YYYY".`

	// MsgActionCreated confirms a new action: id, kind, fire instant.
	MsgActionCreated = "✅ Scheduled action #%d (%s), next delivery %s"

	// MsgActionCancelled confirms a cancellation.
	MsgActionCancelled = "🗑 Action #%d cancelled"

	// MsgNoActions is shown when the user has no pending actions.
	MsgNoActions = "You have no pending actions."

	// MsgActionsHeader heads the pending action list.
	MsgActionsHeader = "📋 Pending actions (%d):\n"

	// MsgUnknownCommand answers an unrecognized command.
	MsgUnknownCommand = "❓ Unknown command. Send /help for the list of commands."

	// MsgUsageOnce is shown when /dm_once is malformed.
	MsgUsageOnce = "Usage: /dm_once <user> | <message> | <time> | <date>"

	// MsgUsageDaily is shown when /dm_daily is malformed.
	MsgUsageDaily = "Usage: /dm_daily <user> | <message> | <time>"

	// MsgUsageCancel is shown when /dm_cancel is malformed.
	MsgUsageCancel = "Usage: /dm_cancel <id>"

	// MsgErrorFormat is the prefix for formatting error messages.
	MsgErrorFormat = "❌ %v"

	// MsgInternalError hides storage failures from chat users.
	MsgInternalError = "❌ Something went wrong. Please try again later."

	// MsgForbidden is shown when a user may not touch an action.
	MsgForbidden = "⛔ You can only cancel your own actions."

	// MsgNotFound is shown for an unknown action id.
	MsgNotFound = "Action #%d not found."

	// MsgBanned is shown to banned users.
	MsgBanned = "⛔ You are not allowed to schedule messages."
)

// Config messages
const (
	// MsgConfigValidating is printed before validation.
	MsgConfigValidating = "📄 Validating configuration: %s\n"

	// MsgConfigLoadError is the error message when configuration loading fails.
	MsgConfigLoadError = "❌ Failed to load configuration: %v\n"

	// MsgConfigValidationError is the message when configuration validation fails.
	MsgConfigValidationError = "❌ Configuration validation failed:\n"

	// MsgConfigValid is the message when configuration is successfully loaded and validated.
	MsgConfigValid = "✅ Configuration loaded"

	// MsgConfigValidatePrefix is the prefix for configuration validation errors.
	MsgConfigValidatePrefix = "  - %v\n"
)

// CLI messages
const (
	// MsgCLIActionAdded confirms an action added from the command line.
	MsgCLIActionAdded = "✅ Action %d added\n"

	// MsgCLIActionCancelled confirms a cancellation from the command line.
	MsgCLIActionCancelled = "✅ Action %d cancelled\n"

	// MsgCLIServeNote reminds that a running service reads the database only at start.
	MsgCLIServeNote = "Note: a running 'dmbot serve' picks this up after its next restart\n"

	// MsgCLINoActions is printed when there are no actions to list.
	MsgCLINoActions = "No actions found."

	// MsgCLINoLogs is printed when an action has no delivery log entries.
	MsgCLINoLogs = "No delivery log entries."

	// MsgCLINextDelivery shows when a new action fires first.
	MsgCLINextDelivery = "Next delivery: %s\n"

	// MsgCLINoUsers is printed when the registry is empty.
	MsgCLINoUsers = "No users registered."

	// MsgCLIUserAdded confirms a registration.
	MsgCLIUserAdded = "✅ User %d registered\n"

	// MsgCLIUserBanned confirms a ban change.
	MsgCLIUserBanned = "✅ User %d banned: %t\n"
)

// Telegram messages
const (
	// MsgTelegramStartup is the startup message for Telegram connector.
	MsgTelegramStartup = "📱 Initializing Telegram connector"
)
