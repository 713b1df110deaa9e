package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/pipeline"
	"github.com/nexusflow/signals/pkg/logger"
)

type WebSocketHandler struct {
	orchestrator *pipeline.Orchestrator
	paths        UploadPaths
}

func NewWebSocketHandler(orchestrator *pipeline.Orchestrator, paths UploadPaths) *WebSocketHandler {
	return &WebSocketHandler{orchestrator: orchestrator, paths: paths}
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// writePump is the connection's only writer. The underlying connection does
// not support concurrent writers, so run events and error replies both
// funnel through here.
func writePump(w jsonWriter, events <-chan pipeline.Event, out <-chan any, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.WriteJSON(event); err != nil {
				return
			}
		case msg := <-out:
			if err := w.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// HandleConnection streams live audit events to the client. A {"type":
// "audit"} message kicks off a new run ("start" is accepted as an alias);
// events from runs started elsewhere are delivered too.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	events, cancel := h.orchestrator.Broadcaster().Subscribe()
	out := make(chan any, 8)
	done := make(chan struct{})

	defer func() {
		cancel()
		close(done)
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	go writePump(c, events, out, done)

	for {
		var msg struct {
			Type string `json:"type"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		if msg.Type != "audit" && msg.Type != "start" {
			continue
		}

		go func() {
			input := pipeline.RunInput{
				SalesPath:   h.paths.SalesPath(),
				ContextPath: h.paths.ContextPath(),
				BacklogPath: h.paths.BacklogPath(),
			}
			if _, err := h.orchestrator.Run(context.Background(), input, nil); err != nil {
				logger.Warn("WebSocket-triggered run failed", zap.Error(err))
				select {
				case out <- map[string]any{"type": "error", "error": err.Error()}:
				case <-done:
				}
			}
		}()
	}
}
