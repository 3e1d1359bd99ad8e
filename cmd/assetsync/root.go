package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv overrides the default config path when --config is not given.
const configEnv = "ASSETSYNC_CONFIG"

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "assetsync",
		Short: "Reconcile field asset changes across downstream systems",
		Long: `assetsync receives asset change events from the GIS layer and brings the
device registry, the fixture store and the tracking board in line with them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default $%s or %s)", configEnv, defaultConfigPath))

	resolve := func() string {
		return resolveConfigPath(configPath)
	}

	root.AddCommand(
		newServeCmd(resolve),
		newMigrateCmd(resolve),
		newClassifyCmd(),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath picks the flag, then the environment, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assetsync %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
