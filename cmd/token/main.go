package main

import (
	"BoxDetector/internal/config"
	jwtPkg "BoxDetector/pkg/jwt"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	subject string
	ttl     time.Duration
	secret  string
}

func newRootCmd() *cobra.Command {
	opts := tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for POST /model/predict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.secret
			if secret == "" {
				secret = config.LoadEnv().JWTSecret
			}
			if opts.subject == "" {
				return fmt.Errorf("--sub is required")
			}

			token, expiresAt, err := jwtPkg.Sign(map[string]interface{}{"sub": opts.subject}, opts.ttl, secret)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.subject, "sub", "", "token subject, e.g. the camera or client name")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (default: JWT_ACCESS_TOKEN_SECRET)")

	return cmd
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
