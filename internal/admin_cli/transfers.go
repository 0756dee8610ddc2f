package admin_cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

type transferAction func(ctx context.Context, b *Backend, id uuid.UUID, reason string) (*transfer.Transfer, error)

func newTransferCommand(open BackendFactory, use, short string, action transferAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transferID, err := parseUUIDFlag(cmd, "transfer")
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				t, err := action(ctx, b, transferID, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transfer %s (%s) is now %s\n", t.ID, t.Reference, t.Status)
				return nil
			})
		},
	}

	cmd.Flags().String("transfer", "", "Transfer ID (required)")
	cmd.Flags().String("reason", "", "Reason recorded on the transfer")
	_ = cmd.MarkFlagRequired("transfer")

	return cmd
}

func newFailTransferCommand(open BackendFactory) *cobra.Command {
	return newTransferCommand(open, "fail-transfer", "Abort a transfer that is still awaiting verification",
		func(ctx context.Context, b *Backend, id uuid.UUID, reason string) (*transfer.Transfer, error) {
			return b.Transfers.Fail(ctx, id, reason)
		})
}

func newReverseTransferCommand(open BackendFactory) *cobra.Command {
	return newTransferCommand(open, "reverse-transfer", "Reverse a completed transfer and refund the source account",
		func(ctx context.Context, b *Backend, id uuid.UUID, reason string) (*transfer.Transfer, error) {
			return b.Transfers.Reverse(ctx, id, reason)
		})
}
