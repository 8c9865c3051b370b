package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/hub"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/watchlist"
)

type watchlistHandler struct {
	commander hub.Commander
	logger    *zap.Logger
}

type symbolsResponse struct {
	Symbols []string `json:"symbols"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

type removeResponse struct {
	Symbol  string `json:"symbol"`
	Removed bool   `json:"removed"`
}

// GET /api/watchlist
func (h *watchlistHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, symbolsResponse{Symbols: h.commander.Symbols()})
}

// POST /api/watchlist {"symbol": "NVDA"}
func (h *watchlistHandler) add(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The list is persisted and refreshed past a client disconnect.
	if err := h.commander.Add(context.WithoutCancel(r.Context()), req.Symbol); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, symbolsResponse{Symbols: h.commander.Symbols()})
}

// DELETE /api/watchlist/{symbol}?confirm=true
//
// The confirm parameter is the viewer's answer to "Remove X from
// watchlist?"; without it nothing is removed.
func (h *watchlistHandler) remove(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "confirm=true|false is required")
		return
	}
	confirmed, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "confirm must be true or false")
		return
	}

	sym := watchlist.Normalize(chi.URLParam(r, "symbol"))
	removed, err := h.commander.Remove(context.WithoutCancel(r.Context()), sym, watchlist.Answer(confirmed))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Symbol: sym, Removed: removed})
}

func (h *watchlistHandler) fail(w http.ResponseWriter, err error) {
	var uerr *watchlist.UserInputError
	if !errors.As(err, &uerr) {
		h.logger.Error("Watchlist request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, watchlist.ErrDuplicateSymbol):
		status = http.StatusConflict
	case errors.Is(err, watchlist.ErrNotInWatchlist):
		status = http.StatusNotFound
	}
	writeError(w, status, uerr.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
