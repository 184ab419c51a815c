package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// Default loop timings.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultRunDuration  = time.Hour
)

// Opts holds configuration for a processor run.
type Opts struct {
	Store    store.Store
	Executor Executor

	SessionID    string
	GPUAvailable bool
	Capabilities []string
	Projects     []string

	PollInterval time.Duration
	RunDuration  time.Duration

	// OnResult, when set, is invoked after each command's outcome is
	// written. Used to feed the completion notifier.
	OnResult func(cmd *protocol.Command, res *protocol.Result)

	Out io.Writer
}

// Processor polls the store for unclaimed commands, executes them and
// writes results. Processed ids are tracked in memory for the lifetime of
// one run only: a restart can re-execute a command whose deletion did not
// complete before the crash.
type Processor struct {
	store    store.Store
	executor Executor
	opts     Opts

	processed map[string]bool
}

// New creates a Processor.
func New(opts Opts) (*Processor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("processor: store is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("processor: executor is required")
	}
	if opts.SessionID == "" {
		return nil, fmt.Errorf("processor: session ID is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RunDuration <= 0 {
		opts.RunDuration = DefaultRunDuration
	}
	return &Processor{
		store:     opts.Store,
		executor:  opts.Executor,
		opts:      opts,
		processed: make(map[string]bool),
	}, nil
}

// Run polls until the run duration elapses or ctx is cancelled. Every
// cycle refreshes this session's descriptor so clients can discover it.
func (p *Processor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, p.opts.RunDuration)
	defer cancel()

	p.logf("processor %s: polling every %s for %s", p.opts.SessionID, p.opts.PollInterval, p.opts.RunDuration)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.Cycle(runCtx); err != nil {
			// A store outage is transient from the loop's perspective;
			// log and keep polling until the run window closes.
			p.logf("processor %s: cycle: %v", p.opts.SessionID, err)
		}

		select {
		case <-runCtx.Done():
			p.logf("processor %s: run finished", p.opts.SessionID)
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle performs one poll: list both command folders, handle everything
// not yet processed, then republish the session descriptor.
func (p *Processor) Cycle(ctx context.Context) error {
	var pending []string
	for _, folder := range []string{protocol.FolderPriority, protocol.FolderGlobal} {
		names, err := p.store.List(ctx, folder+"/")
		if err != nil {
			return fmt.Errorf("processor: list %s: %w", folder, err)
		}
		pending = append(pending, names...)
	}

	// Publish before working so discovery sees the real backlog.
	p.publishSession(ctx, p.countUnprocessed(pending))

	for _, name := range pending {
		id := protocol.CommandIDFromPath(name)
		if id == "" || p.processed[id] {
			continue
		}
		p.handle(ctx, name, id)
	}

	p.publishSession(ctx, 0)
	return nil
}

// handle executes one command and writes its outcome. All failure paths
// are contained here: one bad command must not halt the processor.
func (p *Processor) handle(ctx context.Context, name, id string) {
	// Idempotency: if an outcome object already exists for this id (a
	// duplicate listing, or another processor got there first), adopt it
	// as processed and leave the existing outcome untouched.
	if p.outcomeExists(ctx, id) {
		p.processed[id] = true
		p.consumeCommand(ctx, name)
		return
	}

	data, err := p.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		// Consumed by someone else between list and get.
		p.processed[id] = true
		return
	}
	if err != nil {
		p.logf("processor %s: fetch %s: %v", p.opts.SessionID, name, err)
		return
	}

	cmd, err := protocol.DecodeCommand(data)
	if err != nil {
		p.writeOutcome(ctx, &protocol.Command{ID: id}, &protocol.Result{
			Status:    protocol.StatusError,
			Error:     fmt.Sprintf("malformed command: %v", err),
			Timestamp: time.Now().UTC(),
		})
		p.consumeCommand(ctx, name)
		p.processed[id] = true
		return
	}

	result := p.execute(ctx, cmd)
	p.writeOutcome(ctx, cmd, result)
	p.consumeCommand(ctx, name)
	p.processed[id] = true
}

// execute runs one command through the executor, capturing errors and
// panics as error results.
func (p *Processor) execute(ctx context.Context, cmd *protocol.Command) (result *protocol.Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = &protocol.Result{
				Status:    protocol.StatusError,
				Error:     fmt.Sprintf("executor panic: %v", r),
				Timestamp: time.Now().UTC(),
			}
		}
	}()

	if !protocol.KnownType(cmd.Type) {
		return &protocol.Result{
			Status:    protocol.StatusError,
			Error:     fmt.Sprintf("unknown request type: %s", cmd.Type),
			Timestamp: time.Now().UTC(),
		}
	}

	exec, err := p.executor.Execute(ctx, cmd)
	if err != nil {
		return &protocol.Result{
			Status:    protocol.StatusError,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}
	return &protocol.Result{
		Status:         protocol.StatusSuccess,
		Output:         exec.Output,
		Visualizations: exec.Visualizations,
		ExecutionTime:  time.Since(start).Seconds(),
		Timestamp:      time.Now().UTC(),
	}
}

// writeOutcome stores the result under result_{id} or error_{id}.
func (p *Processor) writeOutcome(ctx context.Context, cmd *protocol.Command, result *protocol.Result) {
	data, err := protocol.EncodeResult(result)
	if err != nil {
		p.logf("processor %s: encode outcome for %s: %v", p.opts.SessionID, cmd.ID, err)
		return
	}
	name := protocol.ResultObject(cmd.ID)
	if result.Status == protocol.StatusError {
		name = protocol.ErrorObject(cmd.ID)
	}
	if err := p.store.Put(ctx, name, data); err != nil {
		p.logf("processor %s: write %s: %v", p.opts.SessionID, name, err)
		return
	}
	if p.opts.OnResult != nil {
		p.opts.OnResult(cmd, result)
	}
}

// consumeCommand deletes the command object; a racing delete is a no-op.
func (p *Processor) consumeCommand(ctx context.Context, name string) {
	if err := p.store.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		p.logf("processor %s: delete %s: %v", p.opts.SessionID, name, err)
	}
}

// outcomeExists reports whether a result or error object exists for id.
func (p *Processor) outcomeExists(ctx context.Context, id string) bool {
	for _, name := range []string{protocol.ResultObject(id), protocol.ErrorObject(id)} {
		if _, err := p.store.Get(ctx, name); err == nil {
			return true
		}
	}
	return false
}

func (p *Processor) countUnprocessed(names []string) int {
	n := 0
	for _, name := range names {
		if id := protocol.CommandIDFromPath(name); id != "" && !p.processed[id] {
			n++
		}
	}
	return n
}

// publishSession refreshes this session's descriptor in the store.
func (p *Processor) publishSession(ctx context.Context, active int) {
	sess := protocol.Session{
		SessionID:      p.opts.SessionID,
		GPUAvailable:   p.opts.GPUAvailable,
		Capabilities:   p.opts.Capabilities,
		ProjectNames:   p.opts.Projects,
		ActiveCommands: active,
		Timestamp:      time.Now().UTC(),
	}
	data, err := protocol.EncodeSession(&sess)
	if err != nil {
		return
	}
	if err := p.store.Put(ctx, protocol.SessionObject(p.opts.SessionID), data); err != nil {
		p.logf("processor %s: publish session: %v", p.opts.SessionID, err)
	}
}

func (p *Processor) logf(format string, args ...any) {
	if p.opts.Out != nil {
		fmt.Fprintf(p.opts.Out, format+"\n", args...)
	}
}
