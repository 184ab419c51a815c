package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers match with errors.Is.
var (
	// ErrMalformedMessage marks JSON missing required fields. Never retried.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrStoreUnavailable marks a transport or auth failure talking to the
	// blob store. Surfaced as-is; retry budgets belong to the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCommandTimeout marks a submission whose result never appeared
	// within the computed timeout. Distinct from a remote error so callers
	// can tell "never executed" from "executed and failed".
	ErrCommandTimeout = errors.New("command timeout")

	// ErrNoSuitableSession marks a routing attempt with zero eligible
	// candidates. Submission proceeds without a hint when this occurs.
	ErrNoSuitableSession = errors.New("no suitable session")
)

// RemoteError carries an error message produced by the remote processor.
// It travels through the store as an error result and is re-raised in the
// caller's context by the client bridge.
type RemoteError struct {
	CommandID string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote execution of %s failed: %s", e.CommandID, e.Message)
}
