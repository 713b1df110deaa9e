package handlers

import (
	"bufio"
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/pipeline"
	"github.com/nexusflow/signals/pkg/logger"
)

type AuditHandler struct {
	orchestrator *pipeline.Orchestrator
	paths        UploadPaths
}

func NewAuditHandler(orchestrator *pipeline.Orchestrator, paths UploadPaths) *AuditHandler {
	return &AuditHandler{orchestrator: orchestrator, paths: paths}
}

// RunAudit executes the pipeline and streams progress as NDJSON. The final
// line carries the run result; every line before it is a progress event.
func (h *AuditHandler) RunAudit(c *fiber.Ctx) error {
	input := pipeline.RunInput{
		SalesPath:   h.paths.SalesPath(),
		ContextPath: h.paths.ContextPath(),
		BacklogPath: h.paths.BacklogPath(),
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		events := make(chan pipeline.Event, 64)
		done := make(chan struct{})

		var state *pipeline.RunState
		var runErr error
		go func() {
			defer close(events)
			state, runErr = h.orchestrator.Run(context.Background(), input, func(e pipeline.Event) {
				events <- e
			})
			close(done)
		}()

		for event := range events {
			writeLine(w, event)
		}
		<-done

		if runErr != nil {
			if state == nil {
				writeLine(w, fiber.Map{"type": "error", "error": runErr.Error()})
				return
			}
			writeLine(w, fiber.Map{"type": "result", "run": state, "error": runErr.Error()})
			return
		}
		writeLine(w, fiber.Map{"type": "result", "run": state})
	}))

	return nil
}

func writeLine(w *bufio.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode stream line", zap.Error(err))
		return
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}
