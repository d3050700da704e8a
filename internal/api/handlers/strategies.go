package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/registry"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// maxUploadSize bounds strategy definition uploads. Definitions are a
// few KB of YAML; anything near this limit is not a definition.
const maxUploadSize = 1 << 20

// StrategiesHandler handles strategy registry API endpoints
// ⭐ SSOT: 전략 API 핸들러는 이 구조체에서만
type StrategiesHandler struct {
	registry *registry.Registry
	logger   *logger.Logger
}

// NewStrategiesHandler creates a new strategies handler
func NewStrategiesHandler(reg *registry.Registry, log *logger.Logger) *StrategiesHandler {
	return &StrategiesHandler{
		registry: reg,
		logger:   log,
	}
}

// List returns registered strategies ordered by script id
// GET /api/strategies?active=true
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	metas := h.registry.List(activeOnly)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": metas,
		"count":      len(metas),
	})
}

// Scan re-scans the strategy definition directory
// POST /api/strategies/scan
func (h *StrategiesHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.registry.Scan(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to scan strategies")
		respondError(w, http.StatusInternalServerError, "Failed to scan strategy directory")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Upload registers a new strategy definition. The file is validated in
// memory first; a rejected definition is never written to disk.
// POST /api/strategies/upload (multipart, field "file")
func (h *StrategiesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	if len(content) > maxUploadSize {
		respondError(w, http.StatusBadRequest, "Definition file too large")
		return
	}

	meta, err := h.registry.Upload(ctx, header.Filename, content)
	if err != nil {
		if cv, ok := contracts.AsContractViolation(err); ok {
			respondError(w, http.StatusBadRequest, cv.Error())
			return
		}
		if errors.Is(err, contracts.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"filename": header.Filename,
		}).Error("Failed to upload strategy")
		respondError(w, http.StatusInternalServerError, "Failed to upload strategy")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    meta,
	})
}

// Download returns the raw definition file for a strategy
// GET /api/strategies/{id}/download
func (h *StrategiesHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	filename, raw, err := h.registry.Definition(id)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Strategy not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"script_id": id,
		}).Error("Failed to read strategy definition")
		respondError(w, http.StatusInternalServerError, "Failed to read definition")
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(raw)
}

// SetActiveRequest toggles a strategy's activation flag
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive enables or disables a strategy without touching its file
// PUT /api/strategies/{id}/active
func (h *StrategiesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Strategy not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"script_id": id,
		}).Error("Failed to change strategy activation")
		respondError(w, http.StatusInternalServerError, "Failed to change activation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"script_id": id,
		"is_active": req.Active,
	})
}

// Delete removes a strategy from the registry. By default the
// definition file stays on disk and the next scan re-adds the strategy;
// delete_file=true removes the file too.
// DELETE /api/strategies/{id}?delete_file=true
func (h *StrategiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	deleteFile := r.URL.Query().Get("delete_file") == "true"

	if err := h.registry.Remove(ctx, id, deleteFile); err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Strategy not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"script_id": id,
		}).Error("Failed to remove strategy")
		respondError(w, http.StatusInternalServerError, "Failed to remove strategy")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"script_id":    id,
		"file_deleted": deleteFile,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
