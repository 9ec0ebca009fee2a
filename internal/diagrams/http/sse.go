package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/service"
	"github.com/gin-gonic/gin"
)

// doneSentinel is the literal terminal frame; nothing is written after
// it and the transport is closed exactly once.
const doneSentinel = "[DONE]"

// streamSession drains a session's event channel onto the response as
// Server-Sent Events. If the client disconnects the drain stops
// immediately; the session goroutine observes the request context and
// never reaches its saving stage.
func streamSession(c *gin.Context, events <-chan service.Event) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected; the transport is gone, no sentinel.
			return

		case ev, open := <-events:
			if !open {
				fmt.Fprintf(c.Writer, "data: %s\n\n", doneSentinel)
				flusher.Flush()
				return
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
