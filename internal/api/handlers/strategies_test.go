package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/registry"
	"github.com/wonhee/argus/backend/internal/strategy"
	"github.com/wonhee/argus/backend/pkg/logger"
)

type nullProvider struct{}

func (nullProvider) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	return nil, fmt.Errorf("no data for %s", symbol)
}

func newTestRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	deps := strategy.Deps{Data: nullProvider{}, Log: logger.NewNop()}
	return registry.New(dir, deps, nil, logger.NewNop()), dir
}

func writeDefinition(t *testing.T, dir, name, displayName string) {
	t.Helper()
	content := fmt.Sprintf("meta:\n  display_name: %s\nrule:\n  kind: rsi_reversal\n", displayName)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestStrategies_ScanAndList(t *testing.T) {
	reg, dir := newTestRegistry(t)
	writeDefinition(t, dir, "golden_cross.yaml", "Golden Cross")
	writeDefinition(t, dir, "dip_bounce.yaml", "Dip Bounce")
	h := NewStrategiesHandler(reg, logger.NewNop())

	w := httptest.NewRecorder()
	h.Scan(w, httptest.NewRequest("POST", "/api/strategies/scan", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report contracts.ScanReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, []string{"dip_bounce", "golden_cross"}, report.Added)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/strategies", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Strategies []contracts.StrategyMeta `json:"strategies"`
		Count      int                      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listResp))
	assert.Equal(t, 2, listResp.Count)
	require.Len(t, listResp.Strategies, 2)
	assert.Equal(t, "dip_bounce", listResp.Strategies[0].ScriptID)
	assert.Equal(t, "Dip Bounce", listResp.Strategies[0].DisplayName)
}

func TestStrategies_ListActiveOnly(t *testing.T) {
	reg, dir := newTestRegistry(t)
	writeDefinition(t, dir, "golden_cross.yaml", "Golden Cross")
	writeDefinition(t, dir, "dip_bounce.yaml", "Dip Bounce")
	_, err := reg.Scan(context.Background())
	require.NoError(t, err)
	require.NoError(t, reg.SetActive(context.Background(), "dip_bounce", false))
	h := NewStrategiesHandler(reg, logger.NewNop())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/strategies?active=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Strategies []contracts.StrategyMeta `json:"strategies"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listResp))
	require.Len(t, listResp.Strategies, 1)
	assert.Equal(t, "golden_cross", listResp.Strategies[0].ScriptID)
}

func TestStrategies_UploadValid(t *testing.T) {
	reg, dir := newTestRegistry(t)
	h := NewStrategiesHandler(reg, logger.NewNop())

	body, contentType := multipartFile(t, "uploaded.yaml", "meta:\n  display_name: Uploaded\nrule:\n  kind: rsi_reversal\n")
	req := httptest.NewRequest("POST", "/api/strategies/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	_, ok := reg.Get("uploaded")
	assert.True(t, ok, "uploaded strategy should be registered")
	_, err := os.Stat(filepath.Join(dir, "uploaded.yaml"))
	assert.NoError(t, err, "uploaded definition should be on disk")
}

func TestStrategies_UploadInvalidKindRejected(t *testing.T) {
	reg, dir := newTestRegistry(t)
	h := NewStrategiesHandler(reg, logger.NewNop())

	body, contentType := multipartFile(t, "bad.yaml", "meta:\n  display_name: Bad\nrule:\n  kind: teleport\n")
	req := httptest.NewRequest("POST", "/api/strategies/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "contract violation")
	_, statErr := os.Stat(filepath.Join(dir, "bad.yaml"))
	assert.True(t, os.IsNotExist(statErr), "rejected definition must not be written")
	_, ok := reg.Get("bad")
	assert.False(t, ok, "rejected definition must not be registered")
}

func TestStrategies_UploadMissingFile(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := NewStrategiesHandler(reg, logger.NewNop())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/api/strategies/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrategies_Download(t *testing.T) {
	reg, dir := newTestRegistry(t)
	writeDefinition(t, dir, "golden_cross.yaml", "Golden Cross")
	_, err := reg.Scan(context.Background())
	require.NoError(t, err)
	h := NewStrategiesHandler(reg, logger.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest("GET", "/api/strategies/golden_cross/download", nil),
		map[string]string{"id": "golden_cross"},
	)
	w := httptest.NewRecorder()
	h.Download(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "golden_cross.yaml")

	raw, err := os.ReadFile(filepath.Join(dir, "golden_cross.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(raw), w.Body.String())

	req = mux.SetURLVars(
		httptest.NewRequest("GET", "/api/strategies/ghost/download", nil),
		map[string]string{"id": "ghost"},
	)
	w = httptest.NewRecorder()
	h.Download(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStrategies_SetActive(t *testing.T) {
	reg, dir := newTestRegistry(t)
	writeDefinition(t, dir, "golden_cross.yaml", "Golden Cross")
	_, err := reg.Scan(context.Background())
	require.NoError(t, err)
	h := NewStrategiesHandler(reg, logger.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest("PUT", "/api/strategies/golden_cross/active", strings.NewReader(`{"active":false}`)),
		map[string]string{"id": "golden_cross"},
	)
	w := httptest.NewRecorder()
	h.SetActive(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	meta, ok := reg.Get("golden_cross")
	require.True(t, ok)
	assert.False(t, meta.IsActive)

	req = mux.SetURLVars(
		httptest.NewRequest("PUT", "/api/strategies/ghost/active", strings.NewReader(`{"active":true}`)),
		map[string]string{"id": "ghost"},
	)
	w = httptest.NewRecorder()
	h.SetActive(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStrategies_Delete(t *testing.T) {
	reg, dir := newTestRegistry(t)
	writeDefinition(t, dir, "golden_cross.yaml", "Golden Cross")
	_, err := reg.Scan(context.Background())
	require.NoError(t, err)
	h := NewStrategiesHandler(reg, logger.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest("DELETE", "/api/strategies/golden_cross?delete_file=true", nil),
		map[string]string{"id": "golden_cross"},
	)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, statErr := os.Stat(filepath.Join(dir, "golden_cross.yaml"))
	assert.True(t, os.IsNotExist(statErr), "definition file should be deleted")

	req = mux.SetURLVars(
		httptest.NewRequest("DELETE", "/api/strategies/golden_cross", nil),
		map[string]string{"id": "golden_cross"},
	)
	w = httptest.NewRecorder()
	h.Delete(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
