package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

func TestCommandFinished_Success(t *testing.T) {
	mock := NewMockAdapter()
	n := New(mock)

	n.CommandFinished(context.Background(),
		&protocol.Command{ID: "c1", Type: protocol.TypeExecuteCode, Project: "demo"},
		&protocol.Result{Status: protocol.StatusSuccess, Output: "2\n", ExecutionTime: 0.5},
	)

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d events", len(sent))
	}
	ev := sent[0]
	if ev.Severity != SeveritySuccess {
		t.Errorf("Severity = %q", ev.Severity)
	}
	if !strings.Contains(ev.Title, "c1") || !strings.Contains(ev.Title, "completed") {
		t.Errorf("Title = %q", ev.Title)
	}
	var names []string
	for _, f := range ev.Fields {
		names = append(names, f.Name)
	}
	for _, want := range []string{"Command", "Type", "Project", "Duration"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing field %q in %v", want, names)
		}
	}
}

func TestCommandFinished_Error(t *testing.T) {
	mock := NewMockAdapter()
	n := New(mock)

	n.CommandFinished(context.Background(),
		&protocol.Command{ID: "c2", Type: protocol.TypeExecuteCode},
		&protocol.Result{Status: protocol.StatusError, Error: "ValueError: x"},
	)

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d events", len(sent))
	}
	if sent[0].Severity != SeverityError || sent[0].Body != "ValueError: x" {
		t.Errorf("event = %+v", sent[0])
	}
}

func TestCommandFinished_AdapterFailureIsSwallowed(t *testing.T) {
	mock := NewMockAdapter()
	mock.FailWith(errors.New("rate limited"))
	n := New(mock)

	// Must not panic or propagate; counters still advance.
	n.CommandFinished(context.Background(),
		&protocol.Command{ID: "c3", Type: protocol.TypeExecuteCode},
		&protocol.Result{Status: protocol.StatusSuccess},
	)
	if s, f := n.Counts(); s != 1 || f != 0 {
		t.Errorf("counts = %d/%d", s, f)
	}
}

func TestDigest_ResetsWindow(t *testing.T) {
	mock := NewMockAdapter()
	n := New(mock)
	ctx := context.Background()

	n.CommandFinished(ctx, &protocol.Command{ID: "a", Type: protocol.TypeExecuteCode},
		&protocol.Result{Status: protocol.StatusSuccess})
	n.CommandFinished(ctx, &protocol.Command{ID: "b", Type: protocol.TypeExecuteCode},
		&protocol.Result{Status: protocol.StatusError, Error: "boom"})

	n.Digest(ctx)

	sent := mock.Sent()
	digest := sent[len(sent)-1]
	if !strings.Contains(digest.Body, "1 succeeded") || !strings.Contains(digest.Body, "1 failed") {
		t.Errorf("digest body = %q", digest.Body)
	}
	if digest.Severity != SeverityError {
		t.Errorf("digest severity = %q", digest.Severity)
	}

	if s, f := n.Counts(); s != 0 || f != 0 {
		t.Errorf("counts after digest = %d/%d", s, f)
	}
}

func TestStartDigest_BadExpression(t *testing.T) {
	n := New(NewMockAdapter())
	if err := n.StartDigest(context.Background(), "not a cron"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartDigest_ValidExpression(t *testing.T) {
	n := New(NewMockAdapter())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := n.StartDigest(ctx, "0 9 * * *"); err != nil {
		t.Fatalf("StartDigest: %v", err)
	}
}
