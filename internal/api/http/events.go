package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// EventsHandler streams store changes to the browser as Server-Sent Events.
type EventsHandler struct {
	auth      AuthSource
	projects  ProjectSource
	keepAlive time.Duration
}

func NewEventsHandler(auth AuthSource, projects ProjectSource) *EventsHandler {
	return &EventsHandler{auth: auth, projects: projects, keepAlive: 15 * time.Second}
}

// pending holds the latest unsent state per event name. Store listeners run
// under the store lock, so they only record the state and signal the writer.
type pending struct {
	mu     sync.Mutex
	latest map[string]any
	wake   chan struct{}
}

func (p *pending) set(event string, data any) {
	p.mu.Lock()
	p.latest[event] = data
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pending) take() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.latest
	p.latest = make(map[string]any, 2)
	return out
}

// Stream sends an "auth" and a "projects" event with the current state, then
// one event per change. Bursts of changes collapse into the latest state.
func (h *EventsHandler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	p := &pending{latest: make(map[string]any, 2), wake: make(chan struct{}, 1)}
	stopAuth := h.auth.Subscribe(func(st store.AuthState) { p.set("auth", newAuthView(st)) })
	defer stopAuth()
	stopProjects := h.projects.Subscribe(func(st store.ProjectState) { p.set("projects", newProjectsView(st)) })
	defer stopProjects()

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-p.wake:
			batch := p.take()
			for _, event := range []string{"auth", "projects"} {
				data, ok := batch[event]
				if !ok {
					continue
				}
				payload, err := json.Marshal(data)
				if err != nil {
					continue
				}
				fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
			}
			flusher.Flush()
		}
	}
}
