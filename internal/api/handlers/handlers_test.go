package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/internal/store"
)

func testPaths(t *testing.T) UploadPaths {
	t.Helper()
	return UploadPaths{
		Dir:         t.TempDir(),
		SalesFile:   "sales.csv",
		ContextFile: "context.txt",
		BacklogFile: "backlog.json",
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadArtifacts(t *testing.T) {
	paths := testPaths(t)
	app := fiber.New()
	app.Post("/api/v1/upload", NewUploadHandler(paths).UploadArtifacts)

	body, contentType := multipartBody(t, "sales", "q1_sales.csv", "Date,Revenue\n2025-01-15,100\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	saved, err := os.ReadFile(paths.SalesPath())
	require.NoError(t, err)
	assert.Contains(t, string(saved), "2025-01-15")

	var payload struct {
		Files map[string]struct {
			Filename string `json:"filename"`
			Checksum string `json:"checksum"`
		} `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "q1_sales.csv", payload.Files["sales"].Filename)
	assert.NotEmpty(t, payload.Files["sales"].Checksum)
}

func TestUploadArtifactsNoFiles(t *testing.T) {
	app := fiber.New()
	app.Post("/api/v1/upload", NewUploadHandler(testPaths(t)).UploadArtifacts)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func newSignalsApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	signalStore := store.New(filepath.Join(t.TempDir(), "signals.json"))
	h := NewSignalsHandler(signalStore)

	app := fiber.New()
	app.Get("/api/v1/signals", h.ListSignals)
	app.Get("/api/v1/signals/:id", h.GetSignal)
	app.Delete("/api/v1/signals", h.ClearSignals)
	return app, signalStore
}

func TestListSignals(t *testing.T) {
	app, signalStore := newSignalsApp(t)
	_, err := signalStore.Add([]model.ReportEntry{{SignalID: "SIG-001", Title: "Drop"}})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		TotalSignals int                  `json:"total_signals"`
		Signals      []model.StoredSignal `json:"signals"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.TotalSignals)
	require.Len(t, payload.Signals, 1)
	assert.Equal(t, "SIG-001", payload.Signals[0].SignalID)
}

func TestGetSignalNotFound(t *testing.T) {
	app, _ := newSignalsApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/signals/SIG-404", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearSignals(t *testing.T) {
	app, signalStore := newSignalsApp(t)
	_, err := signalStore.Add([]model.ReportEntry{{SignalID: "SIG-001"}})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/signals", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	signals, err := signalStore.GetAll()
	require.NoError(t, err)
	assert.Empty(t, signals)
}
