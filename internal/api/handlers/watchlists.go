package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// WatchlistsHandler handles watchlist API endpoints
// ⭐ SSOT: 관심목록 API 핸들러는 이 구조체에서만
type WatchlistsHandler struct {
	catalog contracts.CatalogStore
	logger  *logger.Logger
}

// NewWatchlistsHandler creates a new watchlists handler
func NewWatchlistsHandler(catalog contracts.CatalogStore, log *logger.Logger) *WatchlistsHandler {
	return &WatchlistsHandler{
		catalog: catalog,
		logger:  log,
	}
}

// CreateWatchlistRequest names a new watchlist and its member symbols,
// typically the matched symbols of a finished run.
type CreateWatchlistRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Symbols     []string `json:"symbols"`
}

// Create builds a watchlist from a symbol list. Symbols the catalog has
// never seen get minimal rows first, so nothing is silently dropped.
// POST /api/watchlists
func (h *WatchlistsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	symbols := normalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	// 1. Make sure every symbol has a catalog row.
	if err := h.catalog.EnsureStocksExist(ctx, symbols); err != nil {
		h.logger.WithError(err).Error("Failed to register symbols")
		respondError(w, http.StatusInternalServerError, "Failed to register symbols")
		return
	}

	// 2. Map symbols to stock ids, keeping the request order.
	idsBySymbol, err := h.catalog.StocksBySymbol(ctx, symbols)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up symbols")
		respondError(w, http.StatusInternalServerError, "Failed to look up symbols")
		return
	}
	stockIDs := make([]int64, 0, len(symbols))
	for _, sym := range symbols {
		id, ok := idsBySymbol[sym]
		if !ok {
			h.logger.WithField("symbol", sym).Warn("Symbol missing after upsert, skipped")
			continue
		}
		stockIDs = append(stockIDs, id)
	}

	// 3. Create the watchlist itself.
	watchlistID, err := h.catalog.CreateWatchlist(ctx, req.Name, req.Description, stockIDs)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"name": req.Name,
		}).Error("Failed to create watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to create watchlist")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"watchlist_id": watchlistID,
		"name":         req.Name,
		"stocks":       len(stockIDs),
	}).Info("Watchlist created")

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"watchlist_id": watchlistID,
		"stock_count":  len(stockIDs),
	})
}

// List returns all watchlists with member counts
// GET /api/watchlists
func (h *WatchlistsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	watchlists, err := h.catalog.Watchlists(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list watchlists")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve watchlists")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"watchlists": watchlists,
		"count":      len(watchlists),
	})
}

// Get returns one watchlist with its member symbols
// GET /api/watchlists/{id}
func (h *WatchlistsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	watchlist, symbols, err := h.catalog.WatchlistWithSymbols(ctx, id)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Watchlist not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"watchlist_id": id,
		}).Error("Failed to load watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve watchlist")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"watchlist": watchlist,
		"symbols":   symbols,
	})
}

// normalizeSymbols trims, uppercases, and deduplicates while keeping
// first-seen order.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
