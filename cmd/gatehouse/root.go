// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/xdg"
)

// serviceName identifies this process in logs.
const serviceName = "gatehouse"

// NewRootCmd creates the root command for the gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - account and login-token gateway",
		Long: `Gatehouse creates game accounts and characters, checks passwords,
and hands short-lived signed login tokens to the game server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: $XDG_CONFIG_HOME/gatehouse/gatehouse.yaml if present)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCharacterCmd())
	cmd.AddCommand(NewTokenCmd())

	return cmd
}

// loadConfig reads the configuration for cmd. check narrows validation to the
// sections the command uses; nil validates everything.
func loadConfig(cmd *cobra.Command, check func(*config.Config) error) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = defaultConfigFile()
	}
	return config.Load(config.LoadOptions{
		Path:  path,
		Flags: cmd.Flags(),
		Check: check,
	})
}

// defaultConfigFile returns the XDG config file if one exists.
func defaultConfigFile() string {
	path, err := xdg.ConfigFile()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
