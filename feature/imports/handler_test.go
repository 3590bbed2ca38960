package imports

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"ipocket/feature/inventory/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	// Raise fiber's own body limit so the engine-level upload cap is
	// what rejects oversize files.
	app := fiber.New(fiber.Config{BodyLimit: 2 * UploadMaxBytes})
	db := setupTestDB(t)
	handler := NewHandler(NewService(db, zap.NewNop()))
	handler.RegisterRoutes(app)
	return app, db
}

func multipartBody(t *testing.T, files map[string]string) (io.Reader, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".dat")
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestHandleBundleImport(t *testing.T) {
	t.Run("Dry Run Default", func(t *testing.T) {
		app, db := setupTestApp(t)

		body, contentType := multipartBody(t, map[string]string{"bundle": validBundle})
		req := httptest.NewRequest("POST", "/import/bundle", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result RunResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, StatePreviewed, result.State)
		assert.NotEmpty(t, result.RunID)

		var count int64
		db.Model(&models.IPAsset{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Commit", func(t *testing.T) {
		app, db := setupTestApp(t)

		body, contentType := multipartBody(t, map[string]string{"bundle": validBundle})
		req := httptest.NewRequest("POST", "/import/bundle?dry_run=0", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result RunResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, StateApplied, result.State)

		var count int64
		db.Model(&models.IPAsset{}).Count(&count)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Missing File", func(t *testing.T) {
		app, _ := setupTestApp(t)

		body, contentType := multipartBody(t, map[string]string{})
		req := httptest.NewRequest("POST", "/import/bundle", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Contains(t, payload["error"], "bundle")
	})

	t.Run("Malformed Payload Aborts", func(t *testing.T) {
		app, _ := setupTestApp(t)

		body, contentType := multipartBody(t, map[string]string{"bundle": "{not json"})
		req := httptest.NewRequest("POST", "/import/bundle", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result RunResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, StateAborted, result.State)
		require.NotEmpty(t, result.Errors)
	})
}

func TestHandleCSVImport(t *testing.T) {
	app, db := setupTestApp(t)

	hostsCSV := "name,vendor_name\nrack1-node1,Dell\n"
	body, contentType := multipartBody(t, map[string]string{"hosts": hostsCSV})
	req := httptest.NewRequest("POST", "/import/csv?dry_run=0", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, StateApplied, result.State)

	var count int64
	db.Model(&models.Host{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandleImport_OversizeUpload(t *testing.T) {
	app, _ := setupTestApp(t)

	oversize := strings.Repeat("x", UploadMaxBytes+1)
	body, contentType := multipartBody(t, map[string]string{"nmap": oversize})
	req := httptest.NewRequest("POST", "/import/nmap", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 413, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "10 MB")
}
