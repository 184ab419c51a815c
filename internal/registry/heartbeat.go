package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// DefaultHeartbeatInterval is the default interval between heartbeat ticks.
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeater periodically recreates the instance's heartbeat object,
// carrying cumulative submission counters. Each tick overwrites the
// previous object under the same name; ticks are never deleted.
type Heartbeater struct {
	store      store.Store
	instanceID string

	mu           sync.Mutex
	status       string
	commandsSent int
	lastCommand  string
}

// NewHeartbeater creates a Heartbeater for the given instance.
func NewHeartbeater(s store.Store, instanceID string) *Heartbeater {
	return &Heartbeater{store: s, instanceID: instanceID, status: "active"}
}

// RecordCommand bumps the cumulative submission counters. Called by the
// client bridge after each upload.
func (h *Heartbeater) RecordCommand(commandID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commandsSent++
	h.lastCommand = commandID
}

// SetStatus changes the status reported on subsequent ticks.
func (h *Heartbeater) SetStatus(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
}

// Beat writes one heartbeat object now.
func (h *Heartbeater) Beat(ctx context.Context) error {
	h.mu.Lock()
	hb := protocol.Heartbeat{
		InstanceID:   h.instanceID,
		Timestamp:    time.Now().UTC(),
		Status:       h.status,
		CommandsSent: h.commandsSent,
		LastCommand:  h.lastCommand,
	}
	h.mu.Unlock()

	data, err := protocol.EncodeHeartbeat(&hb)
	if err != nil {
		return err
	}
	if err := h.store.Put(ctx, protocol.HeartbeatObject(h.instanceID), data); err != nil {
		return fmt.Errorf("registry: heartbeat %s: %w", h.instanceID, err)
	}
	return nil
}

// Start launches a goroutine that beats immediately and then on every
// interval tick until ctx is cancelled. It returns a channel that receives
// the first store error, after which the loop stops.
func (h *Heartbeater) Start(ctx context.Context, interval time.Duration) <-chan error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	errCh := make(chan error, 1)

	go func() {
		if err := h.Beat(ctx); err != nil {
			errCh <- err
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := h.Beat(ctx); err != nil {
					errCh <- err
					return
				}
			}
		}
	}()

	return errCh
}
