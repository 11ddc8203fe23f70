package handlers

import (
	"io"

	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// EventsHandler streams session state to the browser as server-sent events.
type EventsHandler struct {
	session *services.Session
}

// NewEventsHandler は新しいEventsHandlerを生成します。
func NewEventsHandler(session *services.Session) *EventsHandler {
	return &EventsHandler{session: session}
}

// Stream sends a "state" event on connect and after every applied load.
func (h *EventsHandler) Stream(c *gin.Context) {
	updates := make(chan services.Collection, 8)
	unsubscribe := h.session.Store.Subscribe(func(coll services.Collection) {
		select {
		case updates <- coll:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("state", gin.H{"state": h.session.Snapshot()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case coll := <-updates:
			c.SSEvent("state", gin.H{"collection": coll, "state": h.session.Snapshot()})
			return true
		}
	})
}
