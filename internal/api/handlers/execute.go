package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/engine"
	"github.com/wonhee/argus/backend/internal/registry"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// ExecuteHandler handles strategy execution and result API endpoints
// ⭐ SSOT: 실행/결과 API 핸들러는 이 구조체에서만
type ExecuteHandler struct {
	engine   *engine.Engine
	registry *registry.Registry
	catalog  contracts.CatalogStore
	runs     contracts.RunStore
	logger   *logger.Logger
}

// NewExecuteHandler creates a new execute handler
func NewExecuteHandler(
	eng *engine.Engine,
	reg *registry.Registry,
	catalog contracts.CatalogStore,
	runs contracts.RunStore,
	log *logger.Logger,
) *ExecuteHandler {
	return &ExecuteHandler{
		engine:   eng,
		registry: reg,
		catalog:  catalog,
		runs:     runs,
		logger:   log,
	}
}

// ExecuteRequest selects the symbols and strategies for one run.
// Symbols come from a watchlist or are given inline, not both.
// An empty strategy_ids list runs every active strategy.
type ExecuteRequest struct {
	WatchlistID int64    `json:"watchlist_id,omitempty"`
	Symbols     []string `json:"symbols,omitempty"`
	StrategyIDs []string `json:"strategy_ids,omitempty"`
	Save        bool     `json:"save,omitempty"`
}

// ExecuteResponse is the complete payload for one finished run. The
// response is assembled only after every strategy completed or failed;
// there is no partial or streaming variant.
type ExecuteResponse struct {
	RunID         string                            `json:"run_id"`
	StrategyCount int                               `json:"strategy_count"`
	WatchlistName string                            `json:"watchlist_name,omitempty"`
	TotalStocks   int                               `json:"total_stocks"`
	DurationMS    int64                             `json:"duration_ms"`
	Results       []contracts.SymbolResult          `json:"results"`
	Strategies    map[string]contracts.StrategyMeta `json:"strategies"`
	Warnings      []contracts.Warning               `json:"warnings,omitempty"`
	Saved         bool                              `json:"saved"`
}

// Execute runs strategies over a watchlist or an inline symbol list
// POST /api/strategies/execute
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WatchlistID > 0 && len(req.Symbols) > 0 {
		respondError(w, http.StatusBadRequest, "Provide watchlist_id or symbols, not both")
		return
	}

	// 1. Resolve the symbol universe.
	symbols := req.Symbols
	var watchlistName string
	if req.WatchlistID > 0 {
		wl, members, err := h.catalog.WatchlistWithSymbols(ctx, req.WatchlistID)
		if err != nil {
			if errors.Is(err, contracts.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Watchlist not found")
				return
			}
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"watchlist_id": req.WatchlistID,
			}).Error("Failed to load watchlist")
			respondError(w, http.StatusInternalServerError, "Failed to load watchlist")
			return
		}
		symbols = members
		watchlistName = wl.Name
	}

	// 2. Default to every active strategy when none are named.
	ids := req.StrategyIDs
	if len(ids) == 0 {
		ids = h.registry.ActiveIDs()
		if len(ids) == 0 {
			respondError(w, http.StatusBadRequest, "No active strategies to execute")
			return
		}
	}

	// 3. Run.
	run, err := h.engine.Execute(ctx, engine.Request{
		WatchlistID:   req.WatchlistID,
		WatchlistName: watchlistName,
		Symbols:       symbols,
		StrategyIDs:   ids,
	}, engine.Options{SaveResults: req.Save})
	if err != nil {
		switch {
		case errors.Is(err, contracts.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, contracts.ErrNoStrategiesResolved):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).Error("Execution failed")
			respondError(w, http.StatusInternalServerError, "Execution failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, h.buildResponse(run, req.Save))
}

// buildResponse shapes a run for the presentation layer: results keep
// symbol input order, per-strategy objects keep the requested strategy
// order, and the metadata of every executed strategy rides along.
func (h *ExecuteHandler) buildResponse(run *contracts.Run, saved bool) ExecuteResponse {
	metas := make(map[string]contracts.StrategyMeta, len(run.StrategyIDs))
	for _, id := range run.StrategyIDs {
		if meta, ok := h.registry.Get(id); ok {
			metas[id] = meta
		}
	}
	for _, warning := range run.Warnings {
		if warning.Code == contracts.WarnSaveFailed {
			saved = false
		}
	}
	return ExecuteResponse{
		RunID:         run.ID,
		StrategyCount: len(run.StrategyIDs),
		WatchlistName: run.WatchlistName,
		TotalStocks:   len(run.Symbols),
		DurationMS:    run.DurationMS,
		Results:       run.Results,
		Strategies:    metas,
		Warnings:      run.Warnings,
		Saved:         saved,
	}
}

// Latest returns per-symbol results from the most recent saved runs
// GET /api/results/latest?strategy_id=&matched_only=&limit=
func (h *ExecuteHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := contracts.LatestFilter{
		StrategyID:  q.Get("strategy_id"),
		MatchedOnly: q.Get("matched_only") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	results, err := h.runs.Latest(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query latest results")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// Runs lists recent run summaries, newest first
// GET /api/runs?limit=
func (h *ExecuteHandler) Runs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	summaries, err := h.runs.RecentRuns(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  summaries,
		"count": len(summaries),
	})
}
