package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	usersAddUsername string
	usersAddName     string
	usersAddAdmin    bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Register a user so actions can target them",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersBanCmd = &cobra.Command{
	Use:   "ban <user-id>",
	Short: "Stop a user from creating actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBanned(cmd, args[0], true)
	},
}

var usersUnbanCmd = &cobra.Command{
	Use:   "unban <user-id>",
	Short: "Allow a banned user to create actions again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBanned(cmd, args[0], false)
	},
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	users, err := st.ListUsers(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(out, constants.MsgCLINoUsers)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\tNAME\tADMIN\tBANNED\tADDED\n")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%s\n", u.ID, u.Name(), u.IsAdmin, u.IsBanned, humanize.Time(u.AddedOn))
	}
	_, _ = fmt.Fprintf(w, "\nTotal: %s\n", humanize.Comma(int64(len(users))))
	return w.Flush()
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
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

	if err := st.RegisterUser(ctx, store.User{
		ID:          id,
		Username:    usersAddUsername,
		DisplayName: usersAddName,
		IsAdmin:     usersAddAdmin,
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgCLIUserAdded, id)
	return nil
}

func setBanned(cmd *cobra.Command, arg string, banned bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.SetBanned(ctx, id, banned); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %d is not registered", id)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgCLIUserBanned, id, banned)
	return nil
}

func init() {
	usersAddCmd.Flags().StringVarP(&usersAddUsername, "username", "u", "", "Telegram username without @")
	usersAddCmd.Flags().StringVar(&usersAddName, "name", "", "display name")
	usersAddCmd.Flags().BoolVar(&usersAddAdmin, "admin", false, "allow the user to cancel any action")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersBanCmd)
	usersCmd.AddCommand(usersUnbanCmd)
}
