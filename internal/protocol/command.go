// Package protocol defines the wire format exchanged through the shared
// blob store: commands, results, and the presence records (registrations,
// heartbeats, session descriptors) used for discovery.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Command type constants. These are wire values; unknown values received
// from a peer are rejected by the processor with an error result, not here.
const (
	TypeExecuteCode    = "execute_code"
	TypeInstallPackage = "install_package"
	TypeShellCommand   = "shell_command"
	TypeAIQuery        = "ai_query"
	TypeDataAnalysis   = "data_analysis"
	TypeVisualization  = "visualization"
	TypeFileOperation  = "file_operation"
	TypeGPUCheck       = "gpu_check"
	TypeBenchmark      = "benchmark"
	TypeCustom         = "custom"
)

// Priority values.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Estimated runtime values.
const (
	RuntimeShort = "short"
	RuntimeLong  = "long"
)

// knownTypes is the closed set of command types this implementation handles.
var knownTypes = map[string]bool{
	TypeExecuteCode:    true,
	TypeInstallPackage: true,
	TypeShellCommand:   true,
	TypeAIQuery:        true,
	TypeDataAnalysis:   true,
	TypeVisualization:  true,
	TypeFileOperation:  true,
	TypeGPUCheck:       true,
	TypeBenchmark:      true,
	TypeCustom:         true,
}

// KnownType reports whether t is one of the enumerated command types.
func KnownType(t string) bool { return knownTypes[t] }

// Command is a unit of work submitted by a client. Type-specific payload
// fields are flattened into the same JSON object, matching the wire shape
// `{id, type, timestamp, instance_id, project, priority, ...}`.
type Command struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	InstanceID       string    `json:"instance_id,omitempty"`
	Project          string    `json:"project,omitempty"`
	Priority         string    `json:"priority,omitempty"`
	RequiresGPU      bool      `json:"requires_gpu,omitempty"`
	EstimatedRuntime string    `json:"estimated_runtime,omitempty"`
	RoutingHint      string    `json:"routing_hint,omitempty"`

	// Payload fields. Which ones are required depends on Type.
	Code     string   `json:"code,omitempty"`
	Packages []string `json:"packages,omitempty"`
	Command  string   `json:"command,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Path     string   `json:"path,omitempty"`
}

// NewCommandID builds a command ID in the {instance}_{type}_{timestamp}_{rand}
// convention shared with existing peers.
func NewCommandID(instanceID, cmdType string) string {
	return fmt.Sprintf("%s_%s_%d_%s", instanceID, cmdType, time.Now().Unix(), uuid.NewString()[:8])
}

// Validate checks that the command carries the fields required before upload:
// an ID, a known type, and the type's payload fields.
func (c *Command) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("protocol: command id is required: %w", ErrMalformedMessage)
	}
	if c.Type == "" {
		return fmt.Errorf("protocol: command type is required: %w", ErrMalformedMessage)
	}
	if !KnownType(c.Type) {
		return fmt.Errorf("protocol: unknown command type %q: %w", c.Type, ErrMalformedMessage)
	}
	switch c.Type {
	case TypeExecuteCode, TypeDataAnalysis, TypeVisualization, TypeBenchmark:
		if c.Code == "" {
			return fmt.Errorf("protocol: %s requires code: %w", c.Type, ErrMalformedMessage)
		}
	case TypeInstallPackage:
		if len(c.Packages) == 0 {
			return fmt.Errorf("protocol: install_package requires packages: %w", ErrMalformedMessage)
		}
	case TypeShellCommand:
		if c.Command == "" {
			return fmt.Errorf("protocol: shell_command requires command: %w", ErrMalformedMessage)
		}
	case TypeAIQuery:
		if c.Prompt == "" {
			return fmt.Errorf("protocol: ai_query requires prompt: %w", ErrMalformedMessage)
		}
	}
	return nil
}

// EncodeCommand serializes a validated command to wire JSON.
func EncodeCommand(c *Command) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode command %s: %w", c.ID, err)
	}
	return data, nil
}

// DecodeCommand parses wire JSON into a Command and validates required fields.
func DecodeCommand(data []byte) (*Command, error) {
	var c Command
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("protocol: decode command: %v: %w", err, ErrMalformedMessage)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("protocol: decoded command missing id: %w", ErrMalformedMessage)
	}
	if c.Type == "" {
		return nil, fmt.Errorf("protocol: decoded command %s missing type: %w", c.ID, ErrMalformedMessage)
	}
	return &c, nil
}
