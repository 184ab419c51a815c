package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

func TestStart_NilStore(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if !strings.Contains(err.Error(), "store is required") {
		t.Errorf("error = %q", err)
	}
}

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	put := func(name string, content []byte, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("encode %s: %v", name, err)
		}
		if err := st.Put(ctx, name, content); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}

	fresh, err := protocol.EncodeSession(&protocol.Session{
		SessionID:    "sess-gpu",
		GPUAvailable: true,
		ProjectNames: []string{"demo"},
		Timestamp:    time.Now().UTC(),
	})
	put(protocol.SessionObject("sess-gpu"), fresh, err)

	old, err := protocol.EncodeSession(&protocol.Session{
		SessionID: "sess-old",
		Timestamp: time.Now().Add(-10 * time.Minute).UTC(),
	})
	put(protocol.SessionObject("sess-old"), old, err)

	reg, err := protocol.EncodeRegistration(&protocol.Registration{
		InstanceID:   "inst-1",
		ProjectName:  "demo",
		RegisteredAt: time.Now().UTC(),
	})
	put(protocol.InstanceObject("inst-1"), reg, err)

	hb, err := protocol.EncodeHeartbeat(&protocol.Heartbeat{
		InstanceID:   "inst-1",
		Timestamp:    time.Now().UTC(),
		Status:       "active",
		CommandsSent: 4,
		LastCommand:  "cmd-4",
	})
	put(protocol.HeartbeatObject("inst-1"), hb, err)

	cmd, err := protocol.EncodeCommand(&protocol.Command{
		ID:         "inst-1_execute_code_1_abc",
		Type:       protocol.TypeExecuteCode,
		Code:       "print(1)",
		InstanceID: "inst-1",
		Priority:   protocol.PriorityHigh,
		Timestamp:  time.Now().UTC(),
	})
	put(protocol.CommandPath("inst-1_execute_code_1_abc", protocol.PriorityHigh), cmd, err)

	res, err := protocol.EncodeResult(&protocol.Result{
		Status:        protocol.StatusSuccess,
		Output:        "1\n",
		ExecutionTime: 0.2,
		Timestamp:     time.Now().UTC(),
	})
	put(protocol.ResultObject("orphan-1"), res, err)

	return st
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestAPISessions(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	var body struct {
		Sessions []sessionView `json:"sessions"`
	}
	getJSON(t, srv, "/api/sessions", &body)

	if len(body.Sessions) != 2 {
		t.Fatalf("sessions = %d", len(body.Sessions))
	}
	// Sorted by session ID.
	if body.Sessions[0].SessionID != "sess-gpu" || body.Sessions[1].SessionID != "sess-old" {
		t.Errorf("order = %s, %s", body.Sessions[0].SessionID, body.Sessions[1].SessionID)
	}
	if body.Sessions[0].Stale {
		t.Error("fresh session flagged stale")
	}
	if !body.Sessions[1].Stale {
		t.Error("10-minute-old session not flagged stale")
	}
	if !body.Sessions[0].GPUAvailable {
		t.Error("gpu_available lost")
	}
}

func TestAPIInstances(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	var body struct {
		Instances []instanceView `json:"instances"`
	}
	getJSON(t, srv, "/api/instances", &body)

	if len(body.Instances) != 1 {
		t.Fatalf("instances = %d", len(body.Instances))
	}
	inst := body.Instances[0]
	if inst.InstanceID != "inst-1" || inst.Project != "demo" {
		t.Errorf("instance = %+v", inst)
	}
	if inst.Status != "active" || inst.CommandsSent != 4 || inst.LastCommand != "cmd-4" {
		t.Errorf("heartbeat join = %+v", inst)
	}
	if inst.Stale {
		t.Error("fresh heartbeat flagged stale")
	}
}

func TestAPIInstances_NoHeartbeat(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	reg, err := protocol.EncodeRegistration(&protocol.Registration{
		InstanceID:   "inst-quiet",
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := st.Put(ctx, protocol.InstanceObject("inst-quiet"), reg); err != nil {
		t.Fatalf("put: %v", err)
	}

	srv := httptest.NewServer(newRouter(st))
	defer srv.Close()

	var body struct {
		Instances []instanceView `json:"instances"`
	}
	getJSON(t, srv, "/api/instances", &body)
	if len(body.Instances) != 1 {
		t.Fatalf("instances = %d", len(body.Instances))
	}
	if body.Instances[0].Status != "" || body.Instances[0].CommandsSent != 0 {
		t.Errorf("instance without heartbeat = %+v", body.Instances[0])
	}
}

func TestAPICommands(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	var body struct {
		Commands []commandView `json:"commands"`
	}
	getJSON(t, srv, "/api/commands", &body)

	if len(body.Commands) != 1 {
		t.Fatalf("commands = %d", len(body.Commands))
	}
	cmd := body.Commands[0]
	if cmd.ID != "inst-1_execute_code_1_abc" || cmd.Folder != protocol.FolderPriority {
		t.Errorf("command = %+v", cmd)
	}
}

func TestAPIResults(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	var body struct {
		Results []outcomeView `json:"results"`
	}
	getJSON(t, srv, "/api/results", &body)

	if len(body.Results) != 1 {
		t.Fatalf("results = %d", len(body.Results))
	}
	if body.Results[0].CommandID != "orphan-1" || body.Results[0].Status != protocol.StatusSuccess {
		t.Errorf("result = %+v", body.Results[0])
	}
}

func TestAPIStats(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	var stats statsView
	getJSON(t, srv, "/api/stats", &stats)

	want := statsView{Sessions: 2, Instances: 1, PendingPriority: 1, PendingGlobal: 0, Outcomes: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestSSE_ConnectedEvent(t *testing.T) {
	srv := httptest.NewServer(newRouter(seedStore(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	// First event is "connected", second is the initial stats snapshot.
	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= 5 {
			break
		}
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "event: connected") {
		t.Errorf("missing connected event in %q", joined)
	}
	if !strings.Contains(joined, "event: stats") {
		t.Errorf("missing initial stats event in %q", joined)
	}
}
