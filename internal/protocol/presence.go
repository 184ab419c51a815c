package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Preferences holds a client's declared execution preferences.
type Preferences struct {
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	PreferGPU      bool    `json:"prefer_gpu,omitempty"`
	CostCeiling    float64 `json:"cost_ceiling,omitempty"`
}

// Registration is the identity record a client creates on init and deletes
// on explicit cleanup. The protocol enforces no expiry; heartbeat staleness
// is the only (soft) liveness signal.
type Registration struct {
	InstanceID   string      `json:"instance_id"`
	ProjectName  string      `json:"project_name,omitempty"`
	RegisteredAt time.Time   `json:"registered_at"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Preferences  Preferences `json:"preferences,omitempty"`
}

// Heartbeat is a liveness marker recreated on a fixed interval. Each tick
// supersedes the previous object; old ticks are never deleted by the
// protocol itself.
type Heartbeat struct {
	InstanceID   string    `json:"instance_id"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	CommandsSent int       `json:"commands_sent"`
	LastCommand  string    `json:"last_command,omitempty"`
}

// Session describes a discoverable execution endpoint. Written by the
// processor side; read-only to clients.
type Session struct {
	SessionID      string    `json:"session_id"`
	GPUAvailable   bool      `json:"gpu_available"`
	Capabilities   []string  `json:"capabilities,omitempty"`
	ProjectNames   []string  `json:"project_names,omitempty"`
	ActiveCommands int       `json:"active_commands"`
	Timestamp      time.Time `json:"timestamp"`
}

// EncodeRegistration serializes an instance registration.
func EncodeRegistration(r *Registration) ([]byte, error) {
	if r.InstanceID == "" {
		return nil, fmt.Errorf("protocol: registration instance_id is required: %w", ErrMalformedMessage)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode registration %s: %w", r.InstanceID, err)
	}
	return data, nil
}

// EncodeHeartbeat serializes a heartbeat record.
func EncodeHeartbeat(h *Heartbeat) ([]byte, error) {
	if h.InstanceID == "" {
		return nil, fmt.Errorf("protocol: heartbeat instance_id is required: %w", ErrMalformedMessage)
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode heartbeat %s: %w", h.InstanceID, err)
	}
	return data, nil
}

// EncodeSession serializes a session descriptor.
func EncodeSession(s *Session) ([]byte, error) {
	if s.SessionID == "" {
		return nil, fmt.Errorf("protocol: session session_id is required: %w", ErrMalformedMessage)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode session %s: %w", s.SessionID, err)
	}
	return data, nil
}

// DecodeSession parses a session descriptor.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("protocol: decode session: %v: %w", err, ErrMalformedMessage)
	}
	if s.SessionID == "" {
		return nil, fmt.Errorf("protocol: decoded session missing session_id: %w", ErrMalformedMessage)
	}
	return &s, nil
}

// DecodeRegistration parses an instance registration.
func DecodeRegistration(data []byte) (*Registration, error) {
	var r Registration
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("protocol: decode registration: %v: %w", err, ErrMalformedMessage)
	}
	if r.InstanceID == "" {
		return nil, fmt.Errorf("protocol: decoded registration missing instance_id: %w", ErrMalformedMessage)
	}
	return &r, nil
}

// DecodeHeartbeat parses a heartbeat record.
func DecodeHeartbeat(data []byte) (*Heartbeat, error) {
	var h Heartbeat
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("protocol: decode heartbeat: %v: %w", err, ErrMalformedMessage)
	}
	if h.InstanceID == "" {
		return nil, fmt.Errorf("protocol: decoded heartbeat missing instance_id: %w", ErrMalformedMessage)
	}
	return &h, nil
}
