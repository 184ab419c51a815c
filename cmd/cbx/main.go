package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cbx",
		Short: "Colab Bridge — remote code execution over a shared store",
		Long:  "Colab Bridge exchanges commands and results with remote execution sessions through a shared blob store.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newInstanceCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newDoctorCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cbx %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
