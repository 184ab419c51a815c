// Package processor implements the remote side of the exchange: poll the
// shared store for unclaimed commands, execute them, write results back.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

// Execution is what an executor produced for one command.
type Execution struct {
	Output         string
	Visualizations []protocol.Visualization
}

// Executor runs a single command's payload. Implementations must honor ctx
// cancellation. A returned error becomes an error result for that command;
// it never stops the processor loop.
type Executor interface {
	Execute(ctx context.Context, cmd *protocol.Command) (*Execution, error)
}

// Python executes commands by shelling out to a Python interpreter, the
// same way the hosted notebook side runs snippets.
type Python struct {
	// Binary is the interpreter to invoke, default "python3".
	Binary string
}

// NewPython creates a Python executor. binary == "" uses "python3".
func NewPython(binary string) *Python {
	if binary == "" {
		binary = "python3"
	}
	return &Python{Binary: binary}
}

// Execute dispatches on the command type. Types with no local meaning on
// this executor (ai_query, custom, file_operation without a path) return
// an error, which the loop converts into an error result.
func (p *Python) Execute(ctx context.Context, cmd *protocol.Command) (*Execution, error) {
	switch cmd.Type {
	case protocol.TypeExecuteCode, protocol.TypeDataAnalysis, protocol.TypeVisualization, protocol.TypeBenchmark:
		return p.runPython(ctx, cmd.Code)
	case protocol.TypeInstallPackage:
		args := append([]string{"-m", "pip", "install", "--quiet"}, cmd.Packages...)
		return p.run(ctx, p.Binary, args...)
	case protocol.TypeShellCommand:
		return p.run(ctx, "sh", "-c", cmd.Command)
	case protocol.TypeGPUCheck:
		return p.runPython(ctx, gpuCheckSnippet)
	case protocol.TypeFileOperation:
		if cmd.Path == "" {
			return nil, fmt.Errorf("file_operation requires path")
		}
		return p.run(ctx, "ls", "-la", cmd.Path)
	default:
		return nil, fmt.Errorf("type %s is not supported by the python executor", cmd.Type)
	}
}

// gpuCheckSnippet reports CUDA availability without requiring torch to be
// importable; a missing module is itself a valid answer.
const gpuCheckSnippet = `try:
    import torch
    print("cuda:", torch.cuda.is_available())
except ImportError:
    print("cuda: unknown (torch not installed)")
`

func (p *Python) runPython(ctx context.Context, code string) (*Execution, error) {
	return p.run(ctx, p.Binary, "-c", code)
}

// run executes one subprocess, capturing stdout as the result output. On a
// non-zero exit, stderr (or the exec error) becomes the failure message so
// the raising exception's text round-trips to the client.
func (p *Python) run(ctx context.Context, name string, args ...string) (*Execution, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, name, args...)
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return &Execution{Output: stdout.String()}, nil
}
