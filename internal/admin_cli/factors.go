package admin_cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

func newSetPINCommand(open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-pin",
		Short: "Set or replace a user's transaction PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDFlag(cmd, "user")
			if err != nil {
				return err
			}
			pin, _ := cmd.Flags().GetString("pin")

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if err := b.Factors.SetPIN(ctx, userID, pin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "PIN set for user %s\n", userID)
				return nil
			})
		},
	}

	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().String("pin", "", "4 to 6 digit PIN (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}

func newIssueCodeCommand(open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-code",
		Short: "Issue a new IMF, TAX or COT code, retiring the user's current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDFlag(cmd, "user")
			if err != nil {
				return err
			}
			rawGate, _ := cmd.Flags().GetString("gate")
			gate := shared.Gate(strings.ToUpper(rawGate))
			code, _ := cmd.Flags().GetString("code")

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				kc, err := b.Factors.RotateKnowledgeCode(ctx, userID, gate, code)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s code %s active for user %s\n", kc.Type, kc.ID, userID)
				return nil
			})
		},
	}

	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().String("gate", "", "Gate the code unlocks: IMF, TAX or COT (required)")
	cmd.Flags().String("code", "", "Code value handed to the customer (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("gate")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
