package router

import (
	"errors"
	"testing"

	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

func gpuCommand() *protocol.Command {
	return &protocol.Command{
		ID:          "c1",
		Type:        protocol.TypeExecuteCode,
		Code:        "x",
		Project:     "demo",
		RequiresGPU: true,
	}
}

func TestSelect_NoCandidates(t *testing.T) {
	r := New(config.StrategyIntelligent)
	_, err := r.Select(gpuCommand(), nil, nil)
	if !errors.Is(err, protocol.ErrNoSuitableSession) {
		t.Fatalf("err = %v, want ErrNoSuitableSession", err)
	}
}

func TestSelect_GPUFilter(t *testing.T) {
	// Scenario: command requires a GPU, only candidate has none.
	r := New(config.StrategyIntelligent)
	candidates := []protocol.Session{{SessionID: "s1", GPUAvailable: false}}
	_, err := r.Select(gpuCommand(), candidates, nil)
	if !errors.Is(err, protocol.ErrNoSuitableSession) {
		t.Fatalf("err = %v, want ErrNoSuitableSession", err)
	}
}

func TestSelect_UnhealthyFiltered(t *testing.T) {
	r := New(config.StrategyIntelligent)
	candidates := []protocol.Session{
		{SessionID: "sick", GPUAvailable: true},
		{SessionID: "well", GPUAvailable: true},
	}
	hist := History{
		"sick": {Healthy: false},
		"well": {Healthy: true},
	}
	got, err := r.Select(gpuCommand(), candidates, hist)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "well" {
		t.Errorf("selected %q, want well", got)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	r := New(config.StrategyIntelligent)
	candidates := []protocol.Session{
		{SessionID: "s1", GPUAvailable: true, ActiveCommands: 2},
		{SessionID: "s2", GPUAvailable: true, ActiveCommands: 1},
		{SessionID: "s3", GPUAvailable: true, ActiveCommands: 1},
	}
	first, err := r.Select(gpuCommand(), candidates, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := r.Select(gpuCommand(), candidates, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if got != first {
			t.Fatalf("selection changed: %q then %q", first, got)
		}
	}
}

func TestSelect_TieKeepsFirstSeen(t *testing.T) {
	r := New(config.StrategyIntelligent)
	candidates := []protocol.Session{
		{SessionID: "a", GPUAvailable: true},
		{SessionID: "b", GPUAvailable: true},
	}
	got, err := r.Select(gpuCommand(), candidates, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "a" {
		t.Errorf("selected %q, want first-seen a", got)
	}
}

func TestScore_Weights(t *testing.T) {
	cmd := gpuCommand()
	cmd.EstimatedRuntime = protocol.RuntimeLong

	plain := protocol.Session{SessionID: "plain", GPUAvailable: true}
	base := Score(cmd, plain, nil)

	// GPU match is already counted in base; each additional match adds on.
	affine := plain
	affine.ProjectNames = []string{"demo"}
	if got := Score(cmd, affine, nil); got != base+projectAffinityBonus {
		t.Errorf("affinity score = %v, want %v", got, base+projectAffinityBonus)
	}

	bigmem := plain
	bigmem.Capabilities = []string{CapHighMemory}
	if got := Score(cmd, bigmem, nil); got != base+longRuntimeBonus {
		t.Errorf("high-memory score = %v, want %v", got, base+longRuntimeBonus)
	}

	loaded := plain
	loaded.ActiveCommands = 3
	if got := Score(cmd, loaded, nil); got != base-3*loadPenaltyPerCommand {
		t.Errorf("loaded score = %v, want %v", got, base-3*loadPenaltyPerCommand)
	}
}

func TestScore_History(t *testing.T) {
	cmd := gpuCommand()
	s := protocol.Session{SessionID: "s1", GPUAvailable: true}

	fast := History{"s1": {Healthy: true, HasHistory: true, AvgResponseSeconds: 1, SuccessRate: 0.99}}
	slow := History{"s1": {Healthy: true, HasHistory: true, AvgResponseSeconds: 30, SuccessRate: 0.5}}

	if Score(cmd, s, fast) <= Score(cmd, s, slow) {
		t.Errorf("fast reliable session should outscore slow flaky one: %v vs %v",
			Score(cmd, s, fast), Score(cmd, s, slow))
	}
}

func TestSelect_LeastBusy(t *testing.T) {
	r := New(config.StrategyLeastBusy)
	candidates := []protocol.Session{
		{SessionID: "busy", GPUAvailable: true, ActiveCommands: 5},
		{SessionID: "idle", GPUAvailable: true, ActiveCommands: 0},
	}
	got, err := r.Select(gpuCommand(), candidates, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "idle" {
		t.Errorf("selected %q, want idle", got)
	}
}

func TestSelect_RoundRobin(t *testing.T) {
	r := New(config.StrategyRoundRobin)
	candidates := []protocol.Session{
		{SessionID: "s1", GPUAvailable: true},
		{SessionID: "s2", GPUAvailable: true},
	}
	var picks []string
	for i := 0; i < 4; i++ {
		got, err := r.Select(gpuCommand(), candidates, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		picks = append(picks, got)
	}
	want := []string{"s1", "s2", "s1", "s2"}
	for i := range want {
		if picks[i] != want[i] {
			t.Fatalf("picks = %v, want %v", picks, want)
		}
	}
}

func TestSelect_Affinity(t *testing.T) {
	r := New(config.StrategyAffinity)
	candidates := []protocol.Session{
		{SessionID: "other", GPUAvailable: true},
		{SessionID: "ours", GPUAvailable: true, ProjectNames: []string{"demo"}},
	}
	got, err := r.Select(gpuCommand(), candidates, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "ours" {
		t.Errorf("selected %q, want ours", got)
	}
}
