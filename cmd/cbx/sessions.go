package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/router"
)

func newSessionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List discoverable execution sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}

			sessions, err := router.Discover(cmd.Context(), st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions discovered.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tGPU\tACTIVE\tPROJECTS")
			for _, s := range sessions {
				gpu := "no"
				if s.GPUAvailable {
					gpu = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					s.SessionID, gpu, s.ActiveCommands, strings.Join(s.ProjectNames, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
