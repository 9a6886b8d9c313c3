package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/service"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or clear the download cache",
	}

	show := &cobra.Command{
		Use:   "show [app]...",
		Short: "List cached downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := service.NewCacheService(a.layout.Cache()).Show(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return printCache(a.stdout, res, "")
		},
	}

	var all bool
	rm := &cobra.Command{
		Use:   "rm <app>... | --all",
		Short: "Remove cached downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("specify apps to remove or --all")
			}
			if all {
				args = []string{"*"}
			}
			res, err := service.NewCacheService(a.layout.Cache()).Remove(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return printCache(a.stdout, res, "Removed ")
		},
	}
	rm.Flags().BoolVarP(&all, "all", "a", false, "remove every cached download")

	cmd.AddCommand(show, rm)
	return cmd
}

func printCache(w io.Writer, res *service.CacheResult, verb string) error {
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "Cache is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range res.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.App, e.Version, e.File, formatBytes(e.Size))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s%s\n", verb, color.CyanString("%d files, %s", len(res.Entries), formatBytes(res.Total)))
	return nil
}

// formatBytes renders a size with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
