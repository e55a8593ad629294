package account

import "github.com/spf13/cobra"

// Actions defines credit balance operations.
type Actions interface {
	Balance(cmd *cobra.Command, args []string) error
	Grant(cmd *cobra.Command, args []string) error
	Remove(cmd *cobra.Command, args []string) error
}

// Command builds the "credits" parent command.
func Command(h Actions) *cobra.Command {
	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Manage credit balances",
	}
	creditsCmd.AddCommand(
		&cobra.Command{
			Use:   "balance [USER]",
			Short: "Show a credit balance (default: your own)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  h.Balance,
		},
		&cobra.Command{
			Use:   "grant USER AMOUNT",
			Short: "Add credits to USER (admin)",
			Args:  cobra.ExactArgs(2), //nolint:mnd
			RunE:  h.Grant,
		},
		&cobra.Command{
			Use:   "remove USER AMOUNT|all",
			Short: "Remove credits from USER, never below zero (admin)",
			Args:  cobra.ExactArgs(2), //nolint:mnd
			RunE:  h.Remove,
		},
	)
	return creditsCmd
}
