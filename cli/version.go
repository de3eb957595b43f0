package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nomis52/gymsync/buildinfo"
)

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			props := buildinfo.Get()
			fmt.Fprintf(opts.out, "%s %s\n", styleBrand.Render("GymSync"), styleVersion.Render(props.Version))
			fmt.Fprintf(opts.out, "  %s %s\n", styleLabel.Render("Commit:"), props.GitCommit)
			fmt.Fprintf(opts.out, "  %s %s\n", styleLabel.Render("Built:"), props.BuildTime)
			fmt.Fprintf(opts.out, "  %s %s/%s\n", styleLabel.Render("OS/Arch:"), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(opts.out, "  %s %s\n", styleLabel.Render("Go:"), runtime.Version())
		},
	}
}
