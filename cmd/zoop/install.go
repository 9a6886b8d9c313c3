package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/install"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
	"github.com/ZebulonRouseFrantzich/zoop/internal/service"
)

type installFlags struct {
	global        bool
	arch          string
	noCache       bool
	independent   bool
	skipHash      bool
	update        bool
	downloadOnly  bool
	forceDownload bool
	checkLatest   bool
	force         bool
}

// options folds the flags into an option record; cfgArch applies when
// --arch is absent.
func (f installFlags) options(cfgArch string) (options.InstallOptions, error) {
	var opts []options.Option
	for _, fl := range []struct {
		set  bool
		kind options.Kind
	}{
		{f.global, options.KindGlobal},
		{f.noCache, options.KindNoUseDownloadCache},
		{f.independent, options.KindNoAutoDownloadDepends},
		{f.skipHash, options.KindSkipDownloadHashCheck},
		{f.update, options.KindUpdateHpAndBuckets},
		{f.downloadOnly, options.KindOnlyDownloadNoInstall},
		{f.forceDownload, options.KindForceDownloadNoInstallOverrideCache},
		{f.checkLatest, options.KindCheckCurrentVersionIsLatest},
		{f.force, options.KindForceInstallOverride},
	} {
		if fl.set {
			opts = append(opts, options.Flag(fl.kind))
		}
	}
	switch {
	case f.arch != "":
		opts = append(opts, options.Arch(f.arch))
	case cfgArch != "":
		opts = append(opts, options.Arch(cfgArch))
	}
	return options.Build(opts...)
}

func newInstallCmd(a *app) *cobra.Command {
	var flags installFlags
	cmd := &cobra.Command{
		Use:   "install <app>...",
		Short: "Install apps",
		Long: `Install apps by name, bucket/name, name@version or manifest path.

  zoop install git
  zoop install main/7zip
  zoop install gh@2.7.0
  zoop install ./tool.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(string(a.cfg.Arch))
			if err != nil {
				return err
			}
			pipeline, err := a.pipeline()
			if err != nil {
				return err
			}
			outcomes, err := service.NewInstallService(pipeline).InstallAll(cmd.Context(), args, opts)
			for _, o := range outcomes {
				printOutcome(a.stdout, o, opts)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.global, "global", "g", false, "install for all users")
	f.StringVarP(&flags.arch, "arch", "a", "", "architecture: 32bit, 64bit or arm64")
	f.BoolVarP(&flags.noCache, "no-cache", "k", false, "do not use the download cache")
	f.BoolVarP(&flags.independent, "independent", "i", false, "do not install dependencies automatically")
	f.BoolVarP(&flags.skipHash, "skip-hash-check", "s", false, "skip hash verification")
	f.BoolVarP(&flags.update, "update", "u", false, "update buckets before installing")
	f.BoolVar(&flags.downloadOnly, "download-only", false, "download and verify without installing")
	f.BoolVar(&flags.forceDownload, "force-download", false, "download again even when cached, without installing")
	f.BoolVar(&flags.checkLatest, "check-latest", false, "check that zoop itself is up to date")
	f.BoolVarP(&flags.force, "force", "f", false, "reinstall even when the version is installed")
	return cmd
}

func printOutcome(w io.Writer, o service.InstallOutcome, opts options.InstallOptions) {
	if o.Err != nil {
		fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), o.Spec)
		return
	}
	res := o.Result
	for _, dep := range res.Dependencies {
		printResult(w, dep, opts)
	}
	printResult(w, res, opts)
}

func printResult(w io.Writer, res *install.Result, opts options.InstallOptions) {
	switch {
	case res.Skipped() && opts.DownloadOnly():
		fmt.Fprintf(w, "%s '%s' (%s) was downloaded\n", color.GreenString("✓"), res.App, res.Version)
	case res.Skipped():
		fmt.Fprintf(w, "%s '%s' (%s) is already installed; use --force to reinstall\n",
			color.YellowString("!"), res.App, res.Version)
	default:
		fmt.Fprintf(w, "%s '%s' (%s) was installed successfully\n", color.GreenString("✓"), res.App, res.Version)
	}
}
