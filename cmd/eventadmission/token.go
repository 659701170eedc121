package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eventadmission/internal/adapters/auth"
)

var tokenFlags struct {
	email  string
	roles  []string
	expiry time.Duration
}

// tokenCmd signs a bearer token for a user, for operators and local testing.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a signed bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(args[0], tokenFlags.email, tokenFlags.roles, tokenFlags.expiry)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.email, "email", "", "email claim")
	tokenCmd.Flags().StringSliceVar(&tokenFlags.roles, "role", nil, "role claim, repeatable")
	tokenCmd.Flags().DurationVar(&tokenFlags.expiry, "expiry", 24*time.Hour, "token lifetime")
}
