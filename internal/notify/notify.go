// Package notify bridges command outcomes to chat platforms (Slack,
// Discord). Delivery is best-effort: a failed notification never affects
// the exchange itself.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

// Severity values for events.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
}

// Event is one notification, formatted for display in chat.
type Event struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Adapter is the interface platform-specific implementations satisfy.
type Adapter interface {
	// Send delivers one event to the platform.
	Send(ctx context.Context, ev Event) error

	// Close shuts down the adapter connection.
	Close() error
}

// Notifier fans events out to all configured adapters and keeps counts
// for periodic digests.
type Notifier struct {
	adapters []Adapter

	mu        sync.Mutex
	successes int
	failures  int
	since     time.Time
}

// New creates a Notifier over the given adapters.
func New(adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters, since: time.Now()}
}

// CommandFinished reports one command outcome. Errors from adapters are
// logged, never returned: the processor must not stall on chat trouble.
func (n *Notifier) CommandFinished(ctx context.Context, cmd *protocol.Command, res *protocol.Result) {
	ev := Event{
		Fields: []Field{
			{Name: "Command", Value: cmd.ID},
			{Name: "Type", Value: cmd.Type},
		},
	}
	if cmd.Project != "" {
		ev.Fields = append(ev.Fields, Field{Name: "Project", Value: cmd.Project})
	}

	if res.Status == protocol.StatusError {
		ev.Title = fmt.Sprintf("Command %s failed", cmd.ID)
		ev.Body = res.Error
		ev.Severity = SeverityError
	} else {
		ev.Title = fmt.Sprintf("Command %s completed", cmd.ID)
		ev.Body = res.Output
		ev.Severity = SeveritySuccess
		if res.ExecutionTime > 0 {
			ev.Fields = append(ev.Fields, Field{
				Name:  "Duration",
				Value: fmt.Sprintf("%.2fs", res.ExecutionTime),
			})
		}
	}

	n.mu.Lock()
	if res.Status == protocol.StatusError {
		n.failures++
	} else {
		n.successes++
	}
	n.mu.Unlock()

	n.send(ctx, ev)
}

// Digest sends a summary of outcomes since the previous digest and resets
// the window.
func (n *Notifier) Digest(ctx context.Context) {
	n.mu.Lock()
	successes, failures, since := n.successes, n.failures, n.since
	n.successes, n.failures = 0, 0
	n.since = time.Now()
	n.mu.Unlock()

	severity := SeverityInfo
	if failures > 0 {
		severity = SeverityError
	}
	n.send(ctx, Event{
		Title:    "Bridge digest",
		Body:     fmt.Sprintf("%d succeeded, %d failed since %s", successes, failures, since.Format(time.RFC3339)),
		Severity: severity,
	})
}

// Counts returns the outcome counts of the current digest window.
func (n *Notifier) Counts() (successes, failures int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.successes, n.failures
}

// Close closes every adapter, returning the first error seen.
func (n *Notifier) Close() error {
	var first error
	for _, a := range n.adapters {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (n *Notifier) send(ctx context.Context, ev Event) {
	for _, a := range n.adapters {
		if err := a.Send(ctx, ev); err != nil {
			log.Printf("notify: send %q: %v", ev.Title, err)
		}
	}
}
