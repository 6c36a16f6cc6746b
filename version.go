package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/objfile"
)

var (
	GitCommit = "development"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "linebasic v%s\n", basic.Version)
			fmt.Fprintf(out, "  Object format: %s\n", objfile.Format)
			fmt.Fprintf(out, "  Git Commit:    %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Date:    %s\n", BuildDate)
			fmt.Fprintf(out, "  Go Version:    %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
