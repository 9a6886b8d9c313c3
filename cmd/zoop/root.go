package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "zoop",
		Short: "Install portable Windows-style apps from manifest buckets",
		Long: `zoop installs applications described by JSON manifests in local
buckets: it downloads and verifies the payload, extracts it under
<root>/apps/<app>/<version>, points "current" at it, and creates shims,
shortcuts and environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging (or set "+EnvDebug+")")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $ZOOP_CONFIG or <config dir>/zoop/config.lua)")

	root.AddCommand(
		newInstallCmd(a),
		newStatusCmd(a),
		newCacheCmd(a),
		newWhichCmd(a),
		newPrefixCmd(a),
		newActivateCmd(a),
		newConfigCmd(a),
	)
	return root
}
