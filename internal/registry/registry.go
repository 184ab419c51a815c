// Package registry manages instance identity records and liveness
// heartbeats in the shared store.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// GenerateInstanceID creates an instance ID in inst-xxxxxxxx format
// (8-char hex) for clients that do not configure one.
func GenerateInstanceID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("registry: generate instance ID: %w", err)
	}
	return "inst-" + hex.EncodeToString(b), nil
}

// Handle references a live registration, used later for deregistration.
type Handle struct {
	InstanceID string
	object     string
}

// HandleFor rebuilds a registration handle from an instance ID, for
// deregistering an instance registered by an earlier process.
func HandleFor(instanceID string) *Handle {
	return &Handle{InstanceID: instanceID, object: protocol.InstanceObject(instanceID)}
}

// Register creates the instance registration object and returns a handle.
func Register(ctx context.Context, s store.Store, reg *protocol.Registration) (*Handle, error) {
	if reg.InstanceID == "" {
		return nil, fmt.Errorf("registry: instance ID is required")
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}

	data, err := protocol.EncodeRegistration(reg)
	if err != nil {
		return nil, err
	}
	name := protocol.InstanceObject(reg.InstanceID)
	if err := s.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("registry: register %s: %w", reg.InstanceID, err)
	}
	return &Handle{InstanceID: reg.InstanceID, object: name}, nil
}

// Deregister deletes the registration object. Heartbeat objects are left
// behind; the protocol defines no cleanup for them.
func Deregister(ctx context.Context, s store.Store, h *Handle) error {
	if h == nil {
		return fmt.Errorf("registry: handle is required")
	}
	if err := s.Delete(ctx, h.object); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already gone; deregistration is idempotent.
			return nil
		}
		return fmt.Errorf("registry: deregister %s: %w", h.InstanceID, err)
	}
	return nil
}

// ListInstances returns all decodable instance registrations in the store.
func ListInstances(ctx context.Context, s store.Store) ([]protocol.Registration, error) {
	names, err := s.List(ctx, "instance_")
	if err != nil {
		return nil, fmt.Errorf("registry: list instances: %w", err)
	}
	var regs []protocol.Registration
	for _, name := range names {
		data, err := s.Get(ctx, name)
		if err != nil {
			continue
		}
		reg, err := protocol.DecodeRegistration(data)
		if err != nil {
			continue
		}
		regs = append(regs, *reg)
	}
	return regs, nil
}
