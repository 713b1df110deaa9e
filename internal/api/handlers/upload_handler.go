package handlers

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/pkg/logger"
	"github.com/nexusflow/signals/pkg/utils"
)

// UploadPaths names where each uploaded artifact lands on disk.
type UploadPaths struct {
	Dir         string
	SalesFile   string
	ContextFile string
	BacklogFile string
}

func (p UploadPaths) SalesPath() string   { return filepath.Join(p.Dir, p.SalesFile) }
func (p UploadPaths) ContextPath() string { return filepath.Join(p.Dir, p.ContextFile) }
func (p UploadPaths) BacklogPath() string { return filepath.Join(p.Dir, p.BacklogFile) }

type UploadHandler struct {
	paths UploadPaths
}

func NewUploadHandler(paths UploadPaths) *UploadHandler {
	return &UploadHandler{paths: paths}
}

// UploadArtifacts accepts a multipart form with any subset of the fields
// "sales", "context" and "backlog". Files not included keep whatever was
// uploaded before.
func (h *UploadHandler) UploadArtifacts(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		logger.Error("Failed to parse multipart form", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid multipart form",
		})
	}

	if err := os.MkdirAll(h.paths.Dir, 0o755); err != nil {
		logger.Error("Failed to create data directory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to prepare data directory",
		})
	}

	targets := map[string]string{
		"sales":   h.paths.SalesPath(),
		"context": h.paths.ContextPath(),
		"backlog": h.paths.BacklogPath(),
	}

	saved := fiber.Map{}
	for field, target := range targets {
		files, ok := form.File[field]
		if !ok || len(files) == 0 {
			continue
		}

		if err := c.SaveFile(files[0], target); err != nil {
			logger.Error("Failed to save uploaded file",
				zap.String("field", field), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to save " + field + " file",
			})
		}

		saved[field] = fiber.Map{
			"filename": files[0].Filename,
			"size":     files[0].Size,
			"checksum": checksumFile(target),
		}
		logger.Info("Artifact uploaded",
			zap.String("field", field),
			zap.String("target", target),
			zap.Int64("size", files[0].Size))
	}

	if len(saved) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files provided; expected sales, context or backlog",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Artifacts uploaded",
		"files":   saved,
	})
}

func checksumFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return utils.HashString(string(data))
}
