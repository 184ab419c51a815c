package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/notify"
	"github.com/sundeepg98/colab-bridge/internal/notify/discord"
	"github.com/sundeepg98/colab-bridge/internal/notify/slack"
	"github.com/sundeepg98/colab-bridge/internal/processor"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

func newProcessCmd() *cobra.Command {
	var (
		configPath string
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the remote command processor",
		Long:  "Polls the shared store for pending commands, executes them and writes results until the run duration elapses or the process is interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, configPath, sessionID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "override the configured session ID")
	return cmd
}

func runProcess(cmd *cobra.Command, configPath, sessionID string) error {
	cfg, st, err := storeFromConfig(configPath)
	if err != nil {
		return err
	}
	if sessionID == "" {
		sessionID = cfg.Processor.SessionID
	}
	if sessionID == "" {
		return fmt.Errorf("cbx: session ID is required (processor.session_id or --session-id)")
	}

	notifier, err := notifierFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	opts := processor.Opts{
		Store:        st,
		Executor:     processor.NewPython(cfg.Processor.PythonBinary),
		SessionID:    sessionID,
		GPUAvailable: cfg.Processor.GPUAvailable,
		Projects:     cfg.Processor.Projects,
		PollInterval: cfg.ProcessorPollInterval(),
		RunDuration:  cfg.RunDuration(),
		Out:          cmd.OutOrStdout(),
	}
	if notifier != nil {
		defer notifier.Close()
		opts.OnResult = func(c *protocol.Command, res *protocol.Result) {
			notifier.CommandFinished(ctx, c, res)
		}
		if cfg.Notify.DigestCron != "" {
			if err := notifier.StartDigest(ctx, cfg.Notify.DigestCron); err != nil {
				return err
			}
		}
	}

	p, err := processor.New(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processing as session %s (gpu: %v)\n", sessionID, cfg.Processor.GPUAvailable)
	return p.Run(ctx)
}

// notifierFromConfig builds a Notifier from configured adapters, or nil
// when none are configured.
func notifierFromConfig(cfg *config.Config) (*notify.Notifier, error) {
	var adapters []notify.Adapter

	if cfg.Notify.Slack.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Notify.Discord.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if len(adapters) == 0 {
		return nil, nil
	}
	return notify.New(adapters...), nil
}
