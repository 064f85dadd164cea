package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/config"
)

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API guard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is empty")
			}
			if !cfg.JWT.Enabled {
				fmt.Fprintln(os.Stderr, "warning: API_AUTH_ENABLED is off; the server will not check this token")
			}
			auth := service.NewAuthService(nil, service.AuthConfig{
				AccessTokenSecret: cfg.JWT.Secret,
				AccessTokenExpiry: cfg.JWT.Expiration,
				Issuer:            cfg.JWT.Issuer,
			})
			token, expiresAt, err := auth.IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"token":      token,
				"subject":    subject,
				"expires_at": expiresAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. the client's name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
