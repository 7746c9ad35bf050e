package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newTokenCommand signs a bearer token for a user id. Accounts live outside
// this server, so this is how local clients get a credential.
func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		username string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Env.IsProduction() {
				return errors.New("refusing to sign tokens in production")
			}
			tokens := tokenService(cfg)
			tokens.Duration = ttl
			tok, expires, err := tokens.Sign(args[0], username)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", tok, expires.Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Display name stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
