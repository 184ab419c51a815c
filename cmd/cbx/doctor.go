package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/router"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store health",
		Long:  "Runs read-only diagnostic checks: config, python binary, store reachability, pending backlog, orphaned outcomes and stale sessions. Nothing is modified or deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Colab Bridge Doctor")
	fmt.Fprintln(out, "===================")

	var results []checkResult

	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	if cfg != nil {
		results = append(results, checkPython(cfg.Processor.PythonBinary))

		st, stResult := checkStore(cfg)
		results = append(results, stResult)
		if st != nil {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			results = append(results, checkBacklog(ctx, st))
			results = append(results, checkOrphans(ctx, st))
			results = append(results, checkSessions(ctx, st))
		}
	} else {
		results = append(results, checkResult{"Python binary", "FAIL", "skipped (no config)"})
		results = append(results, checkResult{"Store", "FAIL", "skipped (no config)"})
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", "PASS", path}
}

func checkPython(binary string) checkResult {
	path, err := exec.LookPath(binary)
	if err != nil {
		return checkResult{"Python binary", "WARN", fmt.Sprintf("%s not found (only the processor needs it)", binary)}
	}
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return checkResult{"Python binary", "PASS", "found (version unknown)"}
	}
	version := strings.TrimSpace(strings.Split(string(out), "\n")[0])
	return checkResult{"Python binary", "PASS", version}
}

func checkStore(cfg *config.Config) (store.Store, checkResult) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, checkResult{"Store", "FAIL", err.Error()}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := st.List(ctx, "session_"); err != nil {
		return nil, checkResult{"Store", "FAIL", fmt.Sprintf("%s: %v", cfg.Store.Backend, err)}
	}
	return st, checkResult{"Store", "PASS", fmt.Sprintf("%s reachable", cfg.Store.Backend)}
}

func checkBacklog(ctx context.Context, st store.Store) checkResult {
	total := 0
	for _, folder := range []string{protocol.FolderPriority, protocol.FolderGlobal} {
		names, err := st.List(ctx, folder+"/")
		if err != nil {
			return checkResult{"Pending commands", "FAIL", err.Error()}
		}
		total += len(names)
	}
	if total == 0 {
		return checkResult{"Pending commands", "PASS", "none pending"}
	}
	return checkResult{"Pending commands", "WARN", fmt.Sprintf("%d pending (is a processor running?)", total)}
}

// checkOrphans reports result objects no one consumed. A timed-out
// submission leaves its outcome behind; this only counts them.
func checkOrphans(ctx context.Context, st store.Store) checkResult {
	total := 0
	for _, prefix := range []string{"result_", "error_"} {
		names, err := st.List(ctx, prefix)
		if err != nil {
			return checkResult{"Orphaned outcomes", "FAIL", err.Error()}
		}
		total += len(names)
	}
	if total == 0 {
		return checkResult{"Orphaned outcomes", "PASS", "none"}
	}
	return checkResult{"Orphaned outcomes", "WARN", fmt.Sprintf("%d unconsumed outcome object(s)", total)}
}

func checkSessions(ctx context.Context, st store.Store) checkResult {
	sessions, err := router.Discover(ctx, st)
	if err != nil {
		return checkResult{"Sessions", "FAIL", err.Error()}
	}
	if len(sessions) == 0 {
		return checkResult{"Sessions", "WARN", "none discovered (submissions will carry no routing hint)"}
	}
	stale := 0
	for _, s := range sessions {
		if time.Since(s.Timestamp) > 2*time.Minute {
			stale++
		}
	}
	if stale > 0 {
		return checkResult{"Sessions", "WARN", fmt.Sprintf("%d discovered, %d stale", len(sessions), stale)}
	}
	return checkResult{"Sessions", "PASS", fmt.Sprintf("%d discovered", len(sessions))}
}
