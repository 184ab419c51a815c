//go:build integration

package processor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/bridge"
	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

func requirePython(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	return path
}

func TestPython_ExecuteCode(t *testing.T) {
	bin := requirePython(t)
	p := NewPython(bin)

	res, err := p.Execute(context.Background(), &protocol.Command{
		ID: "c1", Type: protocol.TypeExecuteCode, Code: "print(1+1)",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "2\n" {
		t.Errorf("Output = %q, want \"2\\n\"", res.Output)
	}
}

func TestPython_Raise(t *testing.T) {
	bin := requirePython(t)
	p := NewPython(bin)

	_, err := p.Execute(context.Background(), &protocol.Command{
		ID: "c2", Type: protocol.TypeExecuteCode, Code: "raise ValueError('x')",
	})
	if err == nil || !strings.Contains(err.Error(), "ValueError") {
		t.Errorf("err = %v, want ValueError text", err)
	}
}

func TestPython_ShellCommand(t *testing.T) {
	requirePython(t)
	p := NewPython("")

	res, err := p.Execute(context.Background(), &protocol.Command{
		ID: "c3", Type: protocol.TypeShellCommand, Command: "echo hello",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "hello\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

// TestEndToEnd drives the full exchange: bridge submits, processor polls
// and executes real python, bridge consumes the result.
func TestEndToEnd(t *testing.T) {
	bin := requirePython(t)
	mem := store.NewMemory()

	cfg, err := config.Parse([]byte("instance_id: vm1\nproject: demo\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	b, err := bridge.New(bridge.Opts{
		Store:        mem,
		Config:       cfg,
		PollInterval: 20 * time.Millisecond,
		BaseTimeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}

	p, err := New(Opts{
		Store:        mem,
		Executor:     NewPython(bin),
		SessionID:    "colab-a",
		PollInterval: 20 * time.Millisecond,
		RunDuration:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("processor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	result, err := b.Submit(ctx, &protocol.Command{
		Type: protocol.TypeExecuteCode, Code: "print(1+1)",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Status != protocol.StatusSuccess || result.Output != "2\n" {
		t.Errorf("result = %+v", result)
	}

	// Remote exception round-trips as a RemoteError.
	_, err = b.Submit(ctx, &protocol.Command{
		Type: protocol.TypeExecuteCode, Code: "raise ValueError('x')",
	})
	var remote *protocol.RemoteError
	if !errors.As(err, &remote) || !strings.Contains(remote.Message, "ValueError") {
		t.Errorf("err = %v, want RemoteError with ValueError", err)
	}
}
