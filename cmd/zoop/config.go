package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	var pathOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pathOnly {
				fmt.Fprintln(a.stdout, a.cfgPath)
				return nil
			}
			fmt.Fprintf(a.stdout, "-- %s\n%s", a.cfgPath, config.NewGenerator().Generate(a.cfg))
			return nil
		},
	}
	cmd.Flags().BoolVar(&pathOnly, "path", false, "print only the config file location")
	return cmd
}
