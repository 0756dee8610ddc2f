package admin_cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/transfer-verification-engine/internal/domain/account"
)

func newOpenAccountCommand(open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-account",
		Short: "Open an account for a user with an opening balance in minor units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDFlag(cmd, "user")
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString("owner")
			balance, _ := cmd.Flags().GetInt64("balance")
			currency, _ := cmd.Flags().GetString("currency")

			acc, err := account.NewAccount(userID, owner, balance, strings.ToUpper(currency))
			if err != nil {
				return err
			}

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if err := b.Accounts.Create(ctx, acc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s opened for user %s with %d %s\n", acc.ID, userID, acc.Balance, acc.Currency)
				return nil
			})
		},
	}

	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().String("owner", "", "Account holder name (required)")
	cmd.Flags().Int64("balance", 0, "Opening balance in minor units")
	cmd.Flags().String("currency", "USD", "ISO 4217 currency code")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newSetAccountActiveCommand(open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freeze-account",
		Short: "Freeze an account so settlements against it fail, or reopen it with --unfreeze",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseUUIDFlag(cmd, "account")
			if err != nil {
				return err
			}
			unfreeze, _ := cmd.Flags().GetBool("unfreeze")

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if err := b.Accounts.SetActive(ctx, accountID, unfreeze); err != nil {
					return err
				}
				state := "frozen"
				if unfreeze {
					state = "active"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s is now %s\n", accountID, state)
				return nil
			})
		},
	}

	cmd.Flags().String("account", "", "Account ID (required)")
	cmd.Flags().Bool("unfreeze", false, "Reactivate instead of freezing")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
