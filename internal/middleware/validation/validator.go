package validation

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxUploadSize       int64
	AllowedContentTypes []string
	Logger              *zap.Logger
}

var allowedExtensions = map[string][]string{
	"sales":   {".csv"},
	"context": {".txt", ".log", ".md"},
	"backlog": {".json"},
}

// Middleware enforces content types on mutating requests and checks
// uploaded artifacts before any handler touches the disk.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		if strings.Contains(c.Path(), "/api/v1/upload") {
			form, err := c.MultipartForm()
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid multipart form",
				})
			}

			for field, files := range form.File {
				extensions, known := allowedExtensions[field]
				if !known {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Unknown upload field: " + field,
					})
				}
				for _, file := range files {
					if reason := checkFile(file, extensions, cfg.MaxUploadSize); reason != "" {
						cfg.Logger.Warn("Upload rejected",
							zap.String("field", field),
							zap.String("filename", file.Filename),
							zap.String("reason", reason),
						)
						return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
							"error": reason,
						})
					}
				}
			}
		}

		return c.Next()
	}
}

func checkFile(file *multipart.FileHeader, extensions []string, maxSize int64) string {
	if file.Size > maxSize {
		return "File exceeds maximum upload size"
	}

	name := sanitizeFilename(file.Filename)
	if name == "" {
		return "Invalid filename"
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range extensions {
		if ext == allowed {
			return ""
		}
	}
	return "Unexpected file type " + ext
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\x00", "")
	// Strip any path components a hostile client might smuggle in.
	return filepath.Base(name)
}
