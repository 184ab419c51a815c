package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/bridge"
	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/registry"
	"github.com/sundeepg98/colab-bridge/internal/router"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

func newSubmitCmd() *cobra.Command {
	var (
		configPath string
		cmdType    string
		code       string
		codeFile   string
		packages   []string
		shellCmd   string
		prompt     string
		path       string
		priority   string
		gpu        bool
		runtime    string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a command and wait for its result",
		Long:  "Uploads one command to the shared store and blocks until the remote session writes a result, or the timeout expires.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}

			if codeFile != "" {
				data, err := os.ReadFile(codeFile)
				if err != nil {
					return fmt.Errorf("cbx: read code file: %w", err)
				}
				code = string(data)
			}

			c := &protocol.Command{
				Type:             cmdType,
				Priority:         priority,
				RequiresGPU:      gpu,
				EstimatedRuntime: runtime,
				Code:             code,
				Packages:         packages,
				Command:          shellCmd,
				Prompt:           prompt,
				Path:             path,
			}
			return runSubmit(cmd, cfg, st, c)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVarP(&cmdType, "type", "t", protocol.TypeExecuteCode, "command type")
	cmd.Flags().StringVar(&code, "code", "", "python code payload")
	cmd.Flags().StringVarP(&codeFile, "file", "f", "", "read code payload from file")
	cmd.Flags().StringSliceVar(&packages, "packages", nil, "packages to install (install_package)")
	cmd.Flags().StringVar(&shellCmd, "command", "", "shell command payload (shell_command)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt payload (ai_query)")
	cmd.Flags().StringVar(&path, "path", "", "path payload (file_operation)")
	cmd.Flags().StringVarP(&priority, "priority", "p", protocol.PriorityNormal, "priority (normal, high)")
	cmd.Flags().BoolVar(&gpu, "gpu", false, "require a GPU session")
	cmd.Flags().StringVar(&runtime, "runtime", "", "estimated runtime (short, long)")
	return cmd
}

func runSubmit(cmd *cobra.Command, cfg *config.Config, st store.Store, c *protocol.Command) error {
	b, hb, cleanup, err := bridgeFromConfig(cfg, st)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if hb != nil {
		hb.Start(ctx, cfg.HeartbeatInterval())
	}

	res, err := b.Submit(ctx, c)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Command %s finished in %.2fs\n", c.ID, res.ExecutionTime)
	if res.Output != "" {
		fmt.Fprint(out, res.Output)
	}
	for _, v := range res.Visualizations {
		fmt.Fprintf(out, "[visualization: %s, %d bytes]\n", v.Type, len(v.Data))
	}
	return nil
}

// bridgeFromConfig assembles a Bridge with its routing and heartbeat
// collaborators. The returned cleanup deregisters the instance when one
// was registered here.
func bridgeFromConfig(cfg *config.Config, st store.Store) (*bridge.Bridge, *registry.Heartbeater, func(), error) {
	instanceID := cfg.InstanceID
	cleanup := func() {}

	if instanceID == "" {
		id, err := registry.GenerateInstanceID()
		if err != nil {
			return nil, nil, nil, err
		}
		instanceID = id
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handle, err := registry.Register(ctx, st, &protocol.Registration{
		InstanceID:  instanceID,
		ProjectName: cfg.Project,
		Preferences: protocol.Preferences{
			TimeoutSeconds: cfg.Bridge.BaseTimeoutSeconds,
			PreferGPU:      cfg.Bridge.PreferGPU,
			CostCeiling:    cfg.Bridge.CostCeiling,
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		registry.Deregister(ctx, st, handle)
	}

	hb := registry.NewHeartbeater(st, instanceID)
	cfgCopy := *cfg
	cfgCopy.InstanceID = instanceID

	b, err := bridge.New(bridge.Opts{
		Store:       st,
		Config:      &cfgCopy,
		Router:      router.New(cfg.Bridge.Strategy),
		Discovery:   router.NewDiscovery(st, router.DefaultDiscoveryTTL),
		Heartbeater: hb,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return b, hb, cleanup, nil
}
