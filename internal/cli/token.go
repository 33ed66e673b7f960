package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tddproof/tddproof-backend/pkg/auth"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/permissions"
)

func newTokenCommand(opts *options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, scope := range scopes {
				if !permissions.IsValidPermission(scope) {
					return fmt.Errorf("unknown scope %q", scope)
				}
			}

			cfg, err := config.Load(opts.service)
			if err != nil {
				return err
			}

			token, err := auth.NewManager(&cfg.JWT).Issue(subject, ttl, scopes...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), token)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to jwt.access_expiry)")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to embed (documents.parse, circuits.build, catalog.read, wildcards allowed)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
