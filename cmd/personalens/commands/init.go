package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"personalens/internal/cmdlog"
	"personalens/internal/config"
	"personalens/internal/theme"
)

func newInitCmd(a *app) *cobra.Command {
	var path, username string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("init", func() error {
				if path == "" {
					path = a.configPath
				}
				cfg := config.Default()
				cfg.Account.Username = normalizeUsername(username)
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				abs, _ := filepath.Abs(path)
				theme.PrintBanner(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "where to write the config (defaults to --config)")
	cmd.Flags().StringVar(&username, "username", "", "default account to fetch")
	return cmd
}
