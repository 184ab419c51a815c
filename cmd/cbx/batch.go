package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

func newBatchCmd() *cobra.Command {
	var (
		configPath string
		batchFile  string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit a batch of commands from a JSON file",
		Long:  "Reads a JSON array of commands, submits them in order and reports each outcome. One failed command does not stop the rest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, configPath, batchFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVarP(&batchFile, "file", "f", "", "JSON file holding an array of commands (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runBatch(cmd *cobra.Command, configPath, batchFile string) error {
	cfg, st, err := storeFromConfig(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(batchFile)
	if err != nil {
		return fmt.Errorf("cbx: read batch file: %w", err)
	}
	var cmds []*protocol.Command
	if err := json.Unmarshal(data, &cmds); err != nil {
		return fmt.Errorf("cbx: parse batch file: %w", err)
	}
	if len(cmds) == 0 {
		return fmt.Errorf("cbx: batch file holds no commands")
	}

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

	items := b.SubmitBatch(ctx, cmds)

	out := cmd.OutOrStdout()
	succeeded := 0
	for _, item := range items {
		if item.Err != nil {
			fmt.Fprintf(out, "[FAIL] %s: %v\n", item.ID, item.Err)
			continue
		}
		succeeded++
		fmt.Fprintf(out, "[ OK ] %s (%.2fs)\n", item.ID, item.Result.ExecutionTime)
	}
	fmt.Fprintf(out, "%d/%d succeeded\n", succeeded, len(items))

	if succeeded < len(items) {
		return fmt.Errorf("cbx: %d command(s) failed", len(items)-succeeded)
	}
	return nil
}
