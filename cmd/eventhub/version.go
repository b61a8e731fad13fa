package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	eventhub "github.com/dep2p/go-eventhub"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", titleColor("eventhub"), eventhub.Version)
		if eventhub.GitCommit != "" {
			fmt.Fprintf(out, "  commit: %s\n", eventhub.GitCommit)
		}
		if eventhub.BuildDate != "" {
			fmt.Fprintf(out, "  built:  %s\n", eventhub.BuildDate)
		}
		fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
	},
}
