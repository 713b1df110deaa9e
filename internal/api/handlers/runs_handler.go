package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/storage/sqlite"
	"github.com/nexusflow/signals/pkg/logger"
)

type RunsHandler struct {
	ledger *sqlite.Client
}

func NewRunsHandler(ledger *sqlite.Client) *RunsHandler {
	return &RunsHandler{ledger: ledger}
}

func (h *RunsHandler) ListRuns(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	runs, err := h.ledger.ListRuns(limit)
	if err != nil {
		logger.Error("Failed to list runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list runs",
		})
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

func (h *RunsHandler) GetRun(c *fiber.Ctx) error {
	id := c.Params("id")

	run, err := h.ledger.GetRun(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}

	attempts, err := h.ledger.GetAttempts(id)
	if err != nil {
		logger.Error("Failed to list detection attempts", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"run":      run,
		"attempts": attempts,
	})
}
