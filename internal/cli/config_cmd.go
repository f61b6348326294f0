// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

func newConfigCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
		Example: `  rigchat config init
  rigchat config init --config ~/.rigchat/config.yaml
  rigchat config show --model mistral`,
	}
	cmd.AddCommand(newConfigInitCommand(opts), newConfigShowCommand(opts), newConfigPathCommand())
	return cmd
}

func newConfigInitCommand(opts *Options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings.

The file goes to --config when given, else ~/.rigchat/config.toml.
A path ending in .yaml or .yml is written as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := initPath(opts.ConfigPath)
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return &UsageError{Reason: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			cfg := config.Default()
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml":
				err = config.SaveYAML(cfg, path)
			default:
				err = config.SaveTOML(cfg, path)
			}
			if err != nil {
				return &ConfigError{Path: path, Err: err}
			}

			w := cmd.OutOrStdout()
			theme := styles.NewTheme(w, styles.ThemeAuto, ColorsEnabled())
			fmt.Fprintln(w, theme.Statusf(styles.StatusSuccess, "Wrote %s", path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after files, environment and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where config files are looked for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tomlPath, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			yamlPath, err := config.ConfigPathYAML()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, tomlPath)
			fmt.Fprintln(w, yamlPath)
			return nil
		},
	}
}

// initPath returns the file config init writes to.
func initPath(flagPath string) (string, error) {
	if flagPath != "" {
		return util.ExpandHome(flagPath)
	}
	return config.ConfigPathTOML()
}
