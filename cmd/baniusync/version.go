package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.7"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "baniusync v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Uploads files to S3-compatible, AWS S3 and Azure Blob storage.\n")
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
