// Package admin_cli implements the operator commands for provisioning
// verification factors and intervening in transfers.
package admin_cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
)

// FactorProvisioner sets the knowledge factors a user verifies against
type FactorProvisioner interface {
	SetPIN(ctx context.Context, userID uuid.UUID, pin string) error
	RotateKnowledgeCode(ctx context.Context, userID uuid.UUID, gate shared.Gate, code string) (*verification.KnowledgeCode, error)
}

// TransferOperator performs operator interventions on a transfer
type TransferOperator interface {
	Fail(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error)
	Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error)
}

// AccountStore opens and freezes accounts
type AccountStore interface {
	Create(ctx context.Context, acc *account.Account) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Backend is what the commands operate on
type Backend struct {
	Factors   FactorProvisioner
	Transfers TransferOperator
	Accounts  AccountStore
}

// BackendFactory opens the backend on first use so that help and token
// commands run without a database. The returned func releases it.
type BackendFactory func(ctx context.Context) (*Backend, func(), error)

// NewRootCommand assembles the engine_admin command tree
func NewRootCommand(cfg *config.Config, open BackendFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "engine_admin",
		Short:         "Operator tooling for the transfer verification engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSetPINCommand(open),
		newIssueCodeCommand(open),
		newOpenAccountCommand(open),
		newSetAccountActiveCommand(open),
		newFailTransferCommand(open),
		newReverseTransferCommand(open),
		newTokenCommand(cfg.Auth),
	)

	return root
}

// withBackend opens the backend for the duration of fn
func withBackend(cmd *cobra.Command, open BackendFactory, fn func(ctx context.Context, b *Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, release, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer release()

	return fn(ctx, backend)
}

func parseUUIDFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s must be a UUID: %w", name, err)
	}
	return id, nil
}
