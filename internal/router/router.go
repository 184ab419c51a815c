// Package router picks a preferred session for a command. The choice is
// advisory only: it travels on the command as routing_hint, but processors
// poll the whole store regardless, so a stale or wrong hint degrades to
// broadcast with no correctness impact. Whether targeted delivery was ever
// intended upstream is unknowable from the observed behavior; this package
// implements the hint-plus-broadcast model as exercised.
package router

import (
	"fmt"
	"sync"

	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

// Scoring weights. Each one is named so it can be tuned and tested without
// touching control flow.
const (
	baseScore = 50.0

	// Response time: sessions answering under the threshold get a bonus,
	// over it a penalty.
	slowResponseThreshold = 5.0 // seconds
	fastResponseBonus     = 10.0
	slowResponsePenalty   = 10.0

	// Success rate around the 90% mark.
	successRateThreshold = 0.9
	successRateBonus     = 15.0
	successRatePenalty   = 20.0

	// Load: linear penalty per in-flight command.
	loadPenaltyPerCommand = 5.0

	// Matching bonuses.
	gpuMatchBonus        = 20.0
	longRuntimeBonus     = 10.0
	projectAffinityBonus = 15.0
)

// CapHighMemory is the session capability that pairs with long-runtime work.
const CapHighMemory = "high_memory"

// Stats is the externally observed health and history of one session. The
// health signal comes from a monitoring collaborator; absence of an entry
// means "no adverse signal", not "unhealthy".
type Stats struct {
	Healthy            bool
	AvgResponseSeconds float64
	SuccessRate        float64 // 0..1
	HasHistory         bool
}

// History maps session IDs to their observed stats.
type History map[string]Stats

// Router selects sessions according to a configured strategy.
type Router struct {
	strategy string

	mu sync.Mutex
	rr int // round-robin cursor
}

// New creates a Router with the given load-balancing strategy.
func New(strategy string) *Router {
	if strategy == "" {
		strategy = config.StrategyIntelligent
	}
	return &Router{strategy: strategy}
}

// Select returns the preferred session ID for cmd among candidates, or
// protocol.ErrNoSuitableSession when filtering leaves nothing. Given
// identical inputs it returns identical output (round_robin excepted,
// whose cursor is deliberate state).
func (r *Router) Select(cmd *protocol.Command, candidates []protocol.Session, hist History) (string, error) {
	eligible := filter(cmd, candidates, hist)
	if len(eligible) == 0 {
		return "", fmt.Errorf("router: no eligible session for %s: %w", cmd.ID, protocol.ErrNoSuitableSession)
	}

	switch r.strategy {
	case config.StrategyLeastBusy:
		return leastBusy(eligible), nil
	case config.StrategyRoundRobin:
		r.mu.Lock()
		defer r.mu.Unlock()
		s := eligible[r.rr%len(eligible)]
		r.rr++
		return s.SessionID, nil
	case config.StrategyAffinity:
		for _, s := range eligible {
			if hasProject(s, cmd.Project) {
				return s.SessionID, nil
			}
		}
		return leastBusy(eligible), nil
	default: // intelligent
		return bestScore(cmd, eligible, hist), nil
	}
}

// filter discards candidates that cannot serve the command: missing GPU
// when one is required, or flagged unhealthy by the monitoring signal.
func filter(cmd *protocol.Command, candidates []protocol.Session, hist History) []protocol.Session {
	var out []protocol.Session
	for _, s := range candidates {
		if cmd.RequiresGPU && !s.GPUAvailable {
			continue
		}
		if st, ok := hist[s.SessionID]; ok && !st.Healthy {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Score computes the heuristic score of one session for one command.
// Exported so the weights are independently testable.
func Score(cmd *protocol.Command, s protocol.Session, hist History) float64 {
	score := baseScore

	if st, ok := hist[s.SessionID]; ok && st.HasHistory {
		if st.AvgResponseSeconds > slowResponseThreshold {
			score -= slowResponsePenalty
		} else {
			score += fastResponseBonus
		}
		if st.SuccessRate >= successRateThreshold {
			score += successRateBonus
		} else {
			score -= successRatePenalty
		}
	}

	score -= float64(s.ActiveCommands) * loadPenaltyPerCommand

	if cmd.RequiresGPU && s.GPUAvailable {
		score += gpuMatchBonus
	}
	if cmd.EstimatedRuntime == protocol.RuntimeLong && hasCapability(s, CapHighMemory) {
		score += longRuntimeBonus
	}
	if hasProject(s, cmd.Project) {
		score += projectAffinityBonus
	}

	return score
}

// bestScore returns the highest-scoring session; ties keep the first seen.
func bestScore(cmd *protocol.Command, eligible []protocol.Session, hist History) string {
	best := eligible[0]
	bestVal := Score(cmd, best, hist)
	for _, s := range eligible[1:] {
		if v := Score(cmd, s, hist); v > bestVal {
			best, bestVal = s, v
		}
	}
	return best.SessionID
}

// leastBusy returns the session with the fewest in-flight commands; ties
// keep the first seen.
func leastBusy(eligible []protocol.Session) string {
	best := eligible[0]
	for _, s := range eligible[1:] {
		if s.ActiveCommands < best.ActiveCommands {
			best = s
		}
	}
	return best.SessionID
}

func hasCapability(s protocol.Session, cap string) bool {
	for _, c := range s.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

func hasProject(s protocol.Session, project string) bool {
	if project == "" {
		return false
	}
	for _, p := range s.ProjectNames {
		if p == project {
			return true
		}
	}
	return false
}
