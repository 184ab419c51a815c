package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPending = "pending"
)

// Visualization is a captured artifact attached to a result, e.g. a rendered
// plot. Data is base64-encoded; Type is a media type such as "image/png".
type Visualization struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Result is the outcome of executing a command.
type Result struct {
	Status         string          `json:"status"`
	Output         string          `json:"output,omitempty"`
	Error          string          `json:"error,omitempty"`
	Visualizations []Visualization `json:"visualizations,omitempty"`
	ExecutionTime  float64         `json:"execution_time,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Validate checks that the result carries a recognized status.
func (r *Result) Validate() error {
	switch r.Status {
	case StatusSuccess, StatusError, StatusPending:
		return nil
	case "":
		return fmt.Errorf("protocol: result status is required: %w", ErrMalformedMessage)
	default:
		return fmt.Errorf("protocol: unknown result status %q: %w", r.Status, ErrMalformedMessage)
	}
}

// EncodeResult serializes a validated result to wire JSON.
func EncodeResult(r *Result) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode result: %w", err)
	}
	return data, nil
}

// DecodeResult parses wire JSON into a Result and validates it.
func DecodeResult(data []byte) (*Result, error) {
	var r Result
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("protocol: decode result: %v: %w", err, ErrMalformedMessage)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
