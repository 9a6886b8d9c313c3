package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/shim"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
)

func newWhichCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "which <command>",
		Short: "Print the executable a shim runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, global := range []bool{false, true} {
				target, err := shim.New(a.layout, shim.Options{Global: global, Logger: a.logger}).Resolve(args[0])
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				if err != nil {
					return fmt.Errorf("read shim %s: %w", args[0], err)
				}
				fmt.Fprintln(a.stdout, target)
				return nil
			}
			return fmt.Errorf("%s is not a zoop shim", args[0])
		},
	}
}

func newPrefixCmd(a *app) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "prefix <app>",
		Short: "Print the current directory of an installed app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := args[0]
			if _, err := state.Installed(a.layout, app, global); err != nil {
				if errors.Is(err, state.ErrNotInstalled) {
					return fmt.Errorf("'%s' is not installed", app)
				}
				return err
			}
			fmt.Fprintln(a.stdout, a.layout.CurrentDir(app, global))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&global, "global", "g", false, "look in the global scope")
	return cmd
}
