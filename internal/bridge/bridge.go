// Package bridge implements the local side of the exchange: build a
// command, upload it to the shared store, poll for the matching result,
// consume and decode it.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/registry"
	"github.com/sundeepg98/colab-bridge/internal/router"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// LongRuntimeMultiplier scales the base timeout for estimated_runtime=long.
const LongRuntimeMultiplier = 3

// Opts holds the collaborators for a Bridge. Router and Discovery are
// optional: without them submissions simply carry no routing hint.
// Heartbeater is optional: without it submission counters go unreported.
type Opts struct {
	Store       store.Store
	Config      *config.Config
	Router      *router.Router
	Discovery   *router.Discovery
	Heartbeater *registry.Heartbeater
	History     router.History

	// PollInterval and BaseTimeout override the config-derived values
	// when non-zero.
	PollInterval time.Duration
	BaseTimeout  time.Duration
}

// Bridge submits commands and consumes their results.
type Bridge struct {
	store       store.Store
	cfg         *config.Config
	router      *router.Router
	discovery   *router.Discovery
	heartbeater *registry.Heartbeater
	history     router.History

	pollInterval time.Duration
	baseTimeout  time.Duration
}

// New creates a Bridge.
func New(opts Opts) (*Bridge, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bridge: store is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bridge: config is required")
	}
	b := &Bridge{
		store:        opts.Store,
		cfg:          opts.Config,
		router:       opts.Router,
		discovery:    opts.Discovery,
		heartbeater:  opts.Heartbeater,
		history:      opts.History,
		pollInterval: opts.PollInterval,
		baseTimeout:  opts.BaseTimeout,
	}
	if b.pollInterval <= 0 {
		b.pollInterval = opts.Config.PollInterval()
	}
	if b.baseTimeout <= 0 {
		b.baseTimeout = opts.Config.BaseTimeout()
	}
	return b, nil
}

// Submit uploads cmd and blocks until its result appears, the computed
// timeout expires, or ctx is cancelled. A remote failure comes back as a
// *protocol.RemoteError; a timeout as protocol.ErrCommandTimeout, in which
// case the command object is left orphaned in the store (no cleanup is
// attempted; the processor may still execute it later).
func (b *Bridge) Submit(ctx context.Context, cmd *protocol.Command) (*protocol.Result, error) {
	if err := b.prepare(cmd); err != nil {
		return nil, err
	}

	b.attachRoutingHint(ctx, cmd)

	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	name := protocol.CommandPath(cmd.ID, cmd.Priority)
	if err := b.store.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("bridge: upload %s: %w", cmd.ID, err)
	}
	if b.heartbeater != nil {
		b.heartbeater.RecordCommand(cmd.ID)
	}

	return b.WaitForResult(ctx, cmd.ID, b.timeoutFor(cmd))
}

// prepare fills in identity, timestamps and defaults before validation.
func (b *Bridge) prepare(cmd *protocol.Command) error {
	if cmd == nil {
		return fmt.Errorf("bridge: command is required")
	}
	if cmd.InstanceID == "" {
		cmd.InstanceID = b.cfg.InstanceID
	}
	if cmd.Project == "" {
		cmd.Project = b.cfg.Project
	}
	if cmd.Priority == "" {
		cmd.Priority = protocol.PriorityNormal
	}
	if cmd.ID == "" {
		cmd.ID = protocol.NewCommandID(cmd.InstanceID, cmd.Type)
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now().UTC()
	}
	return cmd.Validate()
}

// attachRoutingHint consults the session router, best-effort. Discovery
// failures and empty candidate sets never block submission; the command
// just goes out without a hint.
func (b *Bridge) attachRoutingHint(ctx context.Context, cmd *protocol.Command) {
	if b.router == nil || b.discovery == nil {
		return
	}
	sessions, err := b.discovery.Sessions(ctx)
	if err != nil || len(sessions) == 0 {
		return
	}
	hint, err := b.router.Select(cmd, sessions, b.history)
	if err != nil {
		// No suitable session: proceed hintless, per the advisory model.
		return
	}
	cmd.RoutingHint = hint
}

// timeoutFor computes the wait budget: base, tripled for long runtimes.
func (b *Bridge) timeoutFor(cmd *protocol.Command) time.Duration {
	timeout := b.baseTimeout
	if cmd.EstimatedRuntime == protocol.RuntimeLong {
		timeout *= LongRuntimeMultiplier
	}
	return timeout
}

// WaitForResult polls the store until result_{id} or error_{id} appears,
// consuming (deleting) whichever shows up first. The poll interval comes
// from config; the deadline from timeout.
func (b *Bridge) WaitForResult(ctx context.Context, id string, timeout time.Duration) (*protocol.Result, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		result, found, err := b.checkOnce(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			if result.Status == protocol.StatusError {
				return nil, &protocol.RemoteError{CommandID: id, Message: result.Error}
			}
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("bridge: wait for %s: %w", id, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("bridge: no result for %s after %s: %w", id, timeout, protocol.ErrCommandTimeout)
		case <-ticker.C:
		}
	}
}

// checkOnce looks for a result or error object for id, consuming it if
// present. found is false when neither exists yet.
func (b *Bridge) checkOnce(ctx context.Context, id string) (result *protocol.Result, found bool, err error) {
	for _, name := range []string{protocol.ResultObject(id), protocol.ErrorObject(id)} {
		data, err := b.store.Get(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("bridge: fetch %s: %w", name, err)
		}

		// Consume before decoding: at-most-once delivery to this client.
		// A racing delete by someone else is a no-op for us.
		if err := b.store.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("bridge: consume %s: %w", name, err)
		}

		res, err := protocol.DecodeResult(data)
		if err != nil {
			return nil, false, err
		}
		return res, true, nil
	}
	return nil, false, nil
}
