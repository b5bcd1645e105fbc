// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// NewTokenCmd creates the token subcommand.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with login tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify TOKEN",
		Short: "Decode a login token and check it against the configured secret",
		Long: `Decode an encoded login token and check its signature and expiry the
way the game server does. Exits non-zero when the token is not valid.`,
		Args: cobra.ExactArgs(1),
		RunE: runTokenVerify,
	})
	return cmd
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, (*config.Config).ValidateToken)
	if err != nil {
		return err
	}
	issuer, err := gametoken.NewIssuer(cfg.Token.Secret)
	if err != nil {
		return err
	}

	token, err := gametoken.Decode(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Character: %s\n", token.Name)
	cmd.Printf("Expires:   %s\n", token.ExpiresAt().UTC().Format(time.RFC3339Nano))

	if err := issuer.Validate(token); err != nil {
		cmd.Println("Status:    INVALID")
		return err
	}
	cmd.Println("Status:    valid")
	return nil
}
