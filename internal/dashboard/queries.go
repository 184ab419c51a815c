package dashboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// sessionView is one processor session as shown in the API.
type sessionView struct {
	SessionID      string    `json:"session_id"`
	GPUAvailable   bool      `json:"gpu_available"`
	Capabilities   []string  `json:"capabilities,omitempty"`
	Projects       []string  `json:"projects,omitempty"`
	ActiveCommands int       `json:"active_commands"`
	Timestamp      time.Time `json:"timestamp"`
	AgeSeconds     float64   `json:"age_seconds"`
	Stale          bool      `json:"stale"`
}

// instanceView joins a registration with its latest heartbeat.
type instanceView struct {
	InstanceID          string    `json:"instance_id"`
	Project             string    `json:"project,omitempty"`
	RegisteredAt        time.Time `json:"registered_at"`
	Status              string    `json:"status,omitempty"`
	CommandsSent        int       `json:"commands_sent"`
	LastCommand         string    `json:"last_command,omitempty"`
	HeartbeatAgeSeconds float64   `json:"heartbeat_age_seconds"`
	Stale               bool      `json:"stale"`
}

// commandView is one pending command object.
type commandView struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	InstanceID       string    `json:"instance_id,omitempty"`
	Project          string    `json:"project,omitempty"`
	Priority         string    `json:"priority,omitempty"`
	Folder           string    `json:"folder"`
	RoutingHint      string    `json:"routing_hint,omitempty"`
	EstimatedRuntime string    `json:"estimated_runtime,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// outcomeView is one result or error object still sitting in the store.
type outcomeView struct {
	CommandID     string    `json:"command_id"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	ExecutionTime float64   `json:"execution_time,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// statsView is a point-in-time summary used by the index and SSE feed.
type statsView struct {
	Sessions        int `json:"sessions"`
	Instances       int `json:"instances"`
	PendingPriority int `json:"pending_priority"`
	PendingGlobal   int `json:"pending_global"`
	Outcomes        int `json:"outcomes"`
}

// staleAfter is how old a session or heartbeat may be before it is
// flagged stale in API responses. Objects are never deleted for it.
const staleAfter = 120 * time.Second

func listSessions(ctx context.Context, st store.Store, now time.Time) ([]sessionView, error) {
	objs, err := st.List(ctx, "session_")
	if err != nil {
		return nil, err
	}
	views := make([]sessionView, 0, len(objs))
	for _, name := range objs {
		content, err := st.Get(ctx, name)
		if err != nil {
			continue
		}
		sess, err := protocol.DecodeSession(content)
		if err != nil {
			continue
		}
		age := now.Sub(sess.Timestamp).Seconds()
		views = append(views, sessionView{
			SessionID:      sess.SessionID,
			GPUAvailable:   sess.GPUAvailable,
			Capabilities:   sess.Capabilities,
			Projects:       sess.ProjectNames,
			ActiveCommands: sess.ActiveCommands,
			Timestamp:      sess.Timestamp,
			AgeSeconds:     age,
			Stale:          age > staleAfter.Seconds(),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].SessionID < views[j].SessionID })
	return views, nil
}

func listInstances(ctx context.Context, st store.Store, now time.Time) ([]instanceView, error) {
	objs, err := st.List(ctx, "instance_")
	if err != nil {
		return nil, err
	}
	views := make([]instanceView, 0, len(objs))
	for _, name := range objs {
		content, err := st.Get(ctx, name)
		if err != nil {
			continue
		}
		reg, err := protocol.DecodeRegistration(content)
		if err != nil {
			continue
		}
		v := instanceView{
			InstanceID:   reg.InstanceID,
			Project:      reg.ProjectName,
			RegisteredAt: reg.RegisteredAt,
		}
		if hbContent, err := st.Get(ctx, protocol.HeartbeatObject(reg.InstanceID)); err == nil {
			if hb, err := protocol.DecodeHeartbeat(hbContent); err == nil {
				v.Status = hb.Status
				v.CommandsSent = hb.CommandsSent
				v.LastCommand = hb.LastCommand
				v.HeartbeatAgeSeconds = now.Sub(hb.Timestamp).Seconds()
				v.Stale = v.HeartbeatAgeSeconds > staleAfter.Seconds()
			}
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].InstanceID < views[j].InstanceID })
	return views, nil
}

func listCommands(ctx context.Context, st store.Store) ([]commandView, error) {
	var views []commandView
	for _, folder := range []string{protocol.FolderPriority, protocol.FolderGlobal} {
		objs, err := st.List(ctx, folder+"/")
		if err != nil {
			return nil, err
		}
		for _, name := range objs {
			content, err := st.Get(ctx, name)
			if err != nil {
				continue
			}
			cmd, err := protocol.DecodeCommand(content)
			if err != nil {
				continue
			}
			views = append(views, commandView{
				ID:               cmd.ID,
				Type:             cmd.Type,
				InstanceID:       cmd.InstanceID,
				Project:          cmd.Project,
				Priority:         cmd.Priority,
				Folder:           folder,
				RoutingHint:      cmd.RoutingHint,
				EstimatedRuntime: cmd.EstimatedRuntime,
				Timestamp:        cmd.Timestamp,
			})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Timestamp.Before(views[j].Timestamp) })
	return views, nil
}

func listOutcomes(ctx context.Context, st store.Store) ([]outcomeView, error) {
	var views []outcomeView
	for _, prefix := range []string{"result_", "error_"} {
		objs, err := st.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, name := range objs {
			content, err := st.Get(ctx, name)
			if err != nil {
				continue
			}
			res, err := protocol.DecodeResult(content)
			if err != nil {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
			views = append(views, outcomeView{
				CommandID:     id,
				Status:        res.Status,
				Error:         res.Error,
				ExecutionTime: res.ExecutionTime,
				Timestamp:     res.Timestamp,
			})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Timestamp.Before(views[j].Timestamp) })
	return views, nil
}

func gatherStats(ctx context.Context, st store.Store) (statsView, error) {
	var stats statsView
	counts := []struct {
		prefix string
		dst    *int
	}{
		{"session_", &stats.Sessions},
		{"instance_", &stats.Instances},
		{protocol.FolderPriority + "/", &stats.PendingPriority},
		{protocol.FolderGlobal + "/", &stats.PendingGlobal},
	}
	for _, c := range counts {
		objs, err := st.List(ctx, c.prefix)
		if err != nil {
			return statsView{}, err
		}
		*c.dst = len(objs)
	}
	for _, prefix := range []string{"result_", "error_"} {
		objs, err := st.List(ctx, prefix)
		if err != nil {
			return statsView{}, err
		}
		stats.Outcomes += len(objs)
	}
	return stats, nil
}
