package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/internal/infrastructure"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a signed bearer token for local development",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		linkInstagram, _ := cmd.Flags().GetBool("link-instagram")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = config.Auth.TokenTTL
		}

		provider, err := infrastructure.NewJWTIdentityProvider(config.Auth.JWTSecret, config.Auth.Issuer)
		if err != nil {
			return err
		}

		var linked []domain.LinkedIdentity
		if linkInstagram {
			linked = append(linked, domain.LinkedInstagram)
		}

		token, err := provider.IssueToken(args[0], linked, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Bool("link-instagram", false, "Mark the user's Instagram account as linked")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default auth.token_ttl)")
}
