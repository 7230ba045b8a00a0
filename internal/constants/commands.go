package constants

// Chat commands, without the leading slash.
const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandOnce   = "dm_once"
	CommandDaily  = "dm_daily"
	CommandList   = "dm_list"
	CommandCancel = "dm_cancel"
)

// CommandArgSeparator separates the arguments of dm_once and dm_daily.
const CommandArgSeparator = "|"

// CommandTargetSelf may be used instead of a numeric user id to target the
// sender.
const CommandTargetSelf = "me"
