package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
	"github.com/ZebulonRouseFrantzich/zoop/internal/shell"
)

func newActivateCmd(a *app) *cobra.Command {
	var (
		setup bool
		opts  shell.SetupOptions
	)
	cmd := &cobra.Command{
		Use:   "activate [bash|zsh|fish]",
		Short: "Print the shell script that exports zoop's PATH and variables",
		Long: `Print the shell script that exports zoop's PATH and variables.
Add it to your shell startup file:

  eval "$(zoop activate bash)"
  zoop activate fish | source

With --setup the line is added to the shell's rc file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := activationShell(args)
			if err != nil {
				return err
			}
			if setup {
				return runSetup(a, sh, opts)
			}

			var stores []envstore.Lister
			for _, global := range []bool{true, false} {
				store, err := envstore.Open(a.layout, global)
				if err != nil {
					return fmt.Errorf("open environment store: %w", err)
				}
				lister, ok := store.(envstore.Lister)
				if !ok {
					return fmt.Errorf("environment store %T cannot be listed", store)
				}
				stores = append(stores, lister)
			}

			env, err := shell.Gather([]string{a.layout.Shims(false), a.layout.Shims(true)}, stores...)
			if err != nil {
				return err
			}
			script, err := shell.Script(sh, env)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.stdout, script)
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&setup, "setup", false, "add the activation line to the shell rc file")
	f.BoolVar(&opts.Backup, "backup", false, "back up the rc file before changing it")
	f.BoolVar(&opts.DryRun, "dry-run", false, "show what --setup would change")
	f.BoolVar(&opts.Force, "force", false, "add the line even when one is present")
	return cmd
}

func activationShell(args []string) (shell.ShellType, error) {
	if len(args) == 1 {
		return shell.ParseShell(args[0])
	}
	detected := shell.DetectShell()
	if !detected.Shell.IsValid() {
		return shell.ShellUnknown, fmt.Errorf("could not detect your shell; pass one of %v", shell.GetSupportedShells())
	}
	return detected.Shell, nil
}

func runSetup(a *app, sh shell.ShellType, opts shell.SetupOptions) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home directory: %w", err)
	}
	m, err := shell.NewManager(shell.Config{Home: home})
	if err != nil {
		return err
	}
	res, err := m.SetupIntegration(sh, opts)
	if err != nil {
		return err
	}

	switch {
	case res.Added:
		fmt.Fprintf(a.stdout, "%s Added to %s:\n  %s\n", color.GreenString("✓"), res.RCFile, res.ActivationCommand)
		if res.BackupPath != "" {
			fmt.Fprintf(a.stdout, "  backup: %s\n", res.BackupPath)
		}
		fmt.Fprintln(a.stdout, "Restart your shell to apply.")
	case res.AlreadyPresent:
		fmt.Fprintf(a.stdout, "%s %s already activates zoop\n", color.YellowString("!"), res.RCFile)
	default:
		fmt.Fprintf(a.stdout, "Would add to %s:\n  %s\n", res.RCFile, res.ActivationCommand)
	}
	return nil
}
