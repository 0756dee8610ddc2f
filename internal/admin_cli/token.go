package admin_cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
	"github.com/transfer-verification-engine/internal/config"
)

func newTokenCommand(auth config.AuthConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDFlag(cmd, "user")
			if err != nil {
				return err
			}
			role, _ := cmd.Flags().GetString("role")
			if role != middleware.RoleCustomer && role != middleware.RoleAdmin {
				return fmt.Errorf("--role must be %q or %q", middleware.RoleCustomer, middleware.RoleAdmin)
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				ttl = auth.TokenTTL
			}

			token, err := middleware.NewToken(auth.JWTSecret, auth.Issuer, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("user", "", "User ID the token authenticates (required)")
	cmd.Flags().String("role", middleware.RoleCustomer, "customer or admin")
	cmd.Flags().Duration("ttl", time.Duration(0), "Token lifetime, defaults to AUTH_TOKEN_TTL")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
