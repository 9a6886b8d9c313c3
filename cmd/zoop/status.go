package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/zoop/internal/bucket"
	"github.com/ZebulonRouseFrantzich/zoop/internal/service"
)

func newStatusCmd(a *app) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "status [app]...",
		Short: "Show installed apps and available updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewStatusService(a.layout, bucket.NewStore(a.layout), service.SystemClock{}, 0)
			result, err := svc.Status(cmd.Context(), service.StatusRequest{Apps: args, Global: global})
			if err != nil {
				return err
			}
			if len(result.Apps) == 0 {
				fmt.Fprintln(a.stdout, "No apps installed.")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Name\tInstalled\tLatest\tBucket\tScope\tInfo")
			outdated := 0
			for _, st := range result.Apps {
				info := ""
				switch {
				case st.Err != nil:
					info = color.RedString(st.Err.Error())
				case st.Outdated:
					info = color.YellowString("update available")
					outdated++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", st.App, st.Installed, st.Latest, st.Bucket, st.Scope, info)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if outdated == 0 && len(result.Failed()) == 0 {
				fmt.Fprintln(a.stdout, color.GreenString("Everything is up to date."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&global, "global", "g", false, "include globally installed apps")
	return cmd
}
