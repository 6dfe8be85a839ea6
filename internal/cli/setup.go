package cli

import (
	"github.com/spf13/cobra"

	"github.com/oncovista-opd-server/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&configPath, "client-config", "", "client config file (default: platform claude_desktop_config.json)")

	var opts setup.Options
	install := &cobra.Command{
		Use:   "install",
		Short: "Add or update the oncovista-opd server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = configPath
			entry, err := setup.Install(opts)
			if err != nil {
				return err
			}
			getCLIContext(cmd).logger.WithField("command", entry.Command).Info("Registered MCP server")
			return printJSON(cmd, entry)
		},
	}
	install.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the mcp-server binary (default: looked up on PATH)")
	install.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory passed as ONCOVISTA_DATA_DIR")
	install.Flags().StringVar(&opts.RedisURL, "redis-url", "", "shared cache passed as ONCOVISTA_REDIS_URL")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered and runnable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the oncovista-opd server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := setup.Uninstall(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"removed": removed})
		},
	}

	cmd.AddCommand(install, status, uninstall)
	return cmd
}
