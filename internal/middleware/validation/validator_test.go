package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(cfg Config) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/upload", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/v1/audit", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func uploadRequest(t *testing.T, field, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, "content")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestRejectsUnsupportedContentType(t *testing.T) {
	app := newApp(Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", bytes.NewReader([]byte("<xml/>")))
	req.Header.Set("Content-Type", "application/xml")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAcceptsKnownUpload(t *testing.T) {
	app := newApp(Config{})

	resp, err := app.Test(uploadRequest(t, "sales", "q1.csv"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRejectsUnknownField(t *testing.T) {
	app := newApp(Config{})

	resp, err := app.Test(uploadRequest(t, "payload", "x.csv"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsWrongExtension(t *testing.T) {
	app := newApp(Config{})

	resp, err := app.Test(uploadRequest(t, "sales", "report.exe"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsOversizedFile(t *testing.T) {
	app := newApp(Config{MaxUploadSize: 2})

	resp, err := app.Test(uploadRequest(t, "backlog", "backlog.json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
