package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/store"
	"github.com/nexusflow/signals/pkg/logger"
)

type SignalsHandler struct {
	store *store.Store
}

func NewSignalsHandler(signalStore *store.Store) *SignalsHandler {
	return &SignalsHandler{store: signalStore}
}

func (h *SignalsHandler) ListSignals(c *fiber.Ctx) error {
	signals, err := h.store.GetAll()
	if err != nil {
		logger.Error("Failed to read signal store", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read signals",
		})
	}

	return c.JSON(fiber.Map{
		"total_signals": len(signals),
		"signals":       signals,
	})
}

func (h *SignalsHandler) GetSignal(c *fiber.Ctx) error {
	id := c.Params("id")

	signal, err := h.store.GetByID(id)
	if err != nil {
		logger.Error("Failed to read signal store", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read signals",
		})
	}
	if signal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Signal not found",
		})
	}

	return c.JSON(signal)
}

func (h *SignalsHandler) ClearSignals(c *fiber.Ctx) error {
	if err := h.store.Clear(); err != nil {
		logger.Error("Failed to clear signal store", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear signals",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Signal store cleared",
	})
}
