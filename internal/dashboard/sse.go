package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// activityEvent is the payload of an activity-changed SSE event.
type activityEvent struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
}

// handleSSE streams current-activity changes to the client. It polls the
// coordinator cache; the coordinator itself is kept fresh by the sync
// watch feed.
func handleSSE(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if opts.Acts == nil {
			return
		}

		lastID := "\x00unknown"

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
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
				current := opts.Acts.Current()
				id := ""
				if current != nil {
					id = current.ID
				}
				if id == lastID {
					continue
				}
				lastID = id

				evt := activityEvent{}
				if current != nil {
					evt = activityEvent{
						ID:      current.ID,
						Name:    current.Name,
						Running: current.Running,
						Paused:  current.Paused,
					}
				}
				writeSSE(c.Writer, "activity", evt)
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
