package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/registry"
)

func newInstanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Instance registry commands",
	}

	cmd.AddCommand(newInstanceRegisterCmd())
	cmd.AddCommand(newInstanceDeregisterCmd())
	cmd.AddCommand(newInstanceListCmd())
	return cmd
}

func newInstanceRegisterCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this instance in the shared store",
		Long:  "Creates the instance registration object. The registration has no expiry; it persists until explicitly deregistered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}

			instanceID := cfg.InstanceID
			if instanceID == "" {
				instanceID, err = registry.GenerateInstanceID()
				if err != nil {
					return err
				}
			}

			_, err = registry.Register(cmd.Context(), st, &protocol.Registration{
				InstanceID:  instanceID,
				ProjectName: cfg.Project,
				Preferences: protocol.Preferences{
					TimeoutSeconds: cfg.Bridge.BaseTimeoutSeconds,
					PreferGPU:      cfg.Bridge.PreferGPU,
					CostCeiling:    cfg.Bridge.CostCeiling,
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered instance %s\n", instanceID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func newInstanceDeregisterCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "deregister",
		Short: "Remove this instance's registration",
		Long:  "Deletes the instance registration object. Heartbeat objects are left behind; the protocol has no expiry for them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.InstanceID == "" {
				return fmt.Errorf("cbx: instance_id is required in config to deregister")
			}

			h := registry.HandleFor(cfg.InstanceID)
			if err := registry.Deregister(cmd.Context(), st, h); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deregistered instance %s\n", cfg.InstanceID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func newInstanceListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}

			regs, err := registry.ListInstances(cmd.Context(), st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(regs) == 0 {
				fmt.Fprintln(out, "No instances registered.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tPROJECT\tREGISTERED")
			for _, r := range regs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.InstanceID, r.ProjectName, r.RegisteredAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
