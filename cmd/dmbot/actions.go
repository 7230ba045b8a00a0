package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/messages"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	actionsListAll bool

	actionsAddFrom    int64
	actionsAddTo      int64
	actionsAddMessage string
	actionsAddTime    string
	actionsAddDate    string
	actionsAddDaily   bool

	actionsLogLimit int
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Manage scheduled actions",
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled actions",
	Args:  cobra.NoArgs,
	RunE:  runActionsList,
}

var actionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule a direct message",
	Long: `Schedule a direct message by writing it to the database.

A running "dmbot serve" only arms actions when it starts, so an action added
here while the bot is running is armed at its next restart. A one-shot whose
time passes before then is delivered late, right after that restart.`,
	Example: `  dmbot actions add --from 42 --to 123 --message "Pay rent" --time "9:30 PM" --date "25 12 2026"
  dmbot actions add --from 42 --to 42 --message "Stand-up" --time "9:55 AM" --daily`,
	Args: cobra.NoArgs,
	RunE: runActionsAdd,
}

var actionsCancelCmd = &cobra.Command{
	Use:   "cancel <action-id>",
	Short: "Cancel a scheduled action",
	Long: `Cancel a scheduled action in the database.

A running "dmbot serve" keeps an already armed action until its next restart.`,
	Args: cobra.ExactArgs(1),
	RunE: runActionsCancel,
}

var actionsLogCmd = &cobra.Command{
	Use:   "log <action-id>",
	Short: "Show the delivery log of an action",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsLog,
}

func runActionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	records, err := st.ListAll(ctx, actionsListAll)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, constants.MsgCLINoActions)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\tCREATOR\tTARGET\tSCHEDULE\tSENT\tSTATUS\tMESSAGE\n")
	for _, r := range records {
		a, err := action.FromRecord(r)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%d\t%d\t-\t%s\t%d\t%s\t-\n", r.ID, r.CreatedBy, "malformed", r.TriggerCount, recordStatus(r))
			continue
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%s\t%s\n",
			a.ID, a.CreatedBy, a.Target, scheduleText(a), r.TriggerCount, recordStatus(r), messages.Preview(a.Message))
	}
	return w.Flush()
}

func runActionsAdd(cmd *cobra.Command, args []string) error {
	if actionsAddFrom == 0 || actionsAddTo == 0 || actionsAddMessage == "" || actionsAddTime == "" {
		return errors.New("--from, --to, --message and --time are required")
	}
	if !actionsAddDaily && actionsAddDate == "" {
		return errors.New("--date is required unless --daily is set")
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := commands.NewService(st, nil, st.Location(), cliLogger())

	var created commands.Created
	if actionsAddDaily {
		created, err = svc.CreateDaily(ctx, actionsAddFrom, actionsAddTo, actionsAddMessage, actionsAddTime)
	} else {
		created, err = svc.CreateOnce(ctx, actionsAddFrom, actionsAddTo, actionsAddMessage, actionsAddTime, actionsAddDate)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, constants.MsgCLIActionAdded, created.ID)
	fmt.Fprintf(out, constants.MsgCLINextDelivery, created.NextAt.Format(messages.InstantLayout))
	fmt.Fprint(out, constants.MsgCLIServeNote)
	return nil
}

func runActionsCancel(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := commands.NewService(st, nil, st.Location(), cliLogger())
	if err := svc.Cancel(ctx, id, 0); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf(constants.MsgNotFound, id)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, constants.MsgCLIActionCancelled, id)
	fmt.Fprint(out, constants.MsgCLIServeNote)
	return nil
}

func runActionsLog(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf(constants.MsgNotFound, id)
		}
		return err
	}

	entries, err := st.ListLogs(ctx, id, actionsLogLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, constants.MsgCLINoLogs)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "TIME\tLEVEL\tMESSAGE\tDATA\n")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedOn.In(st.Location()).Format(time.DateTime), e.Level, e.Message, e.Data)
	}
	return w.Flush()
}

func scheduleText(a action.ScheduledAction) string {
	if a.Repeat {
		return "daily " + a.Time.String()
	}
	return "once " + a.Date.String() + " " + a.Time.String()
}

func recordStatus(r action.Record) string {
	switch {
	case r.CancelledAt != nil:
		return "cancelled " + humanize.Time(*r.CancelledAt)
	case r.RetiredAt != nil:
		return "retired " + humanize.Time(*r.RetiredAt)
	default:
		return "pending"
	}
}

func init() {
	actionsListCmd.Flags().BoolVarP(&actionsListAll, "all", "a", false, "include retired and cancelled actions")

	actionsAddCmd.Flags().Int64Var(&actionsAddFrom, "from", 0, "registered user id the action is created for")
	actionsAddCmd.Flags().Int64Var(&actionsAddTo, "to", 0, "registered user id that receives the message")
	actionsAddCmd.Flags().StringVarP(&actionsAddMessage, "message", "m", "", "message text")
	actionsAddCmd.Flags().StringVarP(&actionsAddTime, "time", "t", "", `time of day, for example "9:30 PM"`)
	actionsAddCmd.Flags().StringVarP(&actionsAddDate, "date", "d", "", `date for a one-shot action, for example "25 12 2026"`)
	actionsAddCmd.Flags().BoolVar(&actionsAddDaily, "daily", false, "repeat every day")

	actionsLogCmd.Flags().IntVarP(&actionsLogLimit, "limit", "n", 20, "maximum number of entries")

	actionsCmd.AddCommand(actionsListCmd)
	actionsCmd.AddCommand(actionsAddCmd)
	actionsCmd.AddCommand(actionsCancelCmd)
	actionsCmd.AddCommand(actionsLogCmd)
}
