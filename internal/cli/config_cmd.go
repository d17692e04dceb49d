// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/helios-tui/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change settings stored in ~/.helios/config.toml.

Keys use dot notation, for example server.transport or ui.theme.
Run 'helios config get' without a key to list every key.`,
	}
	cmd.AddCommand(
		a.configShowCommand(),
		a.configPathCommand(),
		a.configInitCommand(),
		a.configGetCommand(),
		a.configSetCommand(),
	)
	return cmd
}

func (a *app) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func (a *app) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (a *app) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file with a new identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
			}

			cfg := config.Default()
			cfg.EnsureIdentity()
			if err := config.SaveTOML(cfg, path); err != nil {
				return configError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func (a *app) configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or list all keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(w, strings.Join(config.Keys(), "\n"))
				return nil
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return &ExitError{Code: ExitUsageError, Err: err}
			}
			fmt.Fprintln(w, value)
			return nil
		},
	}
}

func (a *app) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one setting in the config file",
		Example: "  helios config set server.transport websocket",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			cfg, err := readConfigFile(path)
			if err != nil {
				return configError(err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ExitError{Code: ExitUsageError, Err: err}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return configError(err)
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return configError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], args[1])
			return nil
		},
	}
}
