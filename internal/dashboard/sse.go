package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// SSE poll cadences. The feed re-reads the store rather than watching it;
// the store has no change notification.
const (
	ssePollInterval      = 3 * time.Second
	sseHeartbeatInterval = 15 * time.Second
)

// handleSSE streams summary stats whenever they change, with periodic
// keepalive heartbeats in between.
func handleSSE(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		ctx := c.Request.Context()

		var last statsView
		if stats, err := gatherStats(ctx, st); err == nil {
			last = stats
			writeSSE(c.Writer, "stats", stats)
			c.Writer.Flush()
		}

		ticker := time.NewTicker(ssePollInterval)
		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				stats, err := gatherStats(ctx, st)
				if err != nil || stats == last {
					continue
				}
				last = stats
				writeSSE(c.Writer, "stats", stats)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
