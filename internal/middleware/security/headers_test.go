package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, cfg HeadersConfig) *http.Response {
	t.Helper()
	app := fiber.New()
	app.Use(HeadersMiddleware(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp
}

func TestHeadersSet(t *testing.T) {
	resp := serve(t, HeadersConfig{})

	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'none'")
	assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
}

func TestNoHSTSInDevelopment(t *testing.T) {
	resp := serve(t, HeadersConfig{IsDevelopment: true})
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}
