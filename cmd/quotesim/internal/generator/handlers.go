package generator

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noemamarkets/pulse/pkg/models"
)

// NewRouter serves the three upstream endpoints.
func NewRouter(sg *StockGenerator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/quotes", sg.handleQuotes)
		r.Get("/market-indices", sg.handleIndices)
		r.Get("/market-summary", sg.handleSummary)
	})
	return r
}

// GET /api/quotes?symbols=A,B,C
func (sg *StockGenerator) handleQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		http.Error(w, "symbols is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, models.QuotesResponse{
		Quotes:     sg.Quotes(strings.Split(raw, ",")),
		LastUpdate: models.Timestamp{Time: sg.LastUpdate()},
	})
}

// GET /api/market-indices
func (sg *StockGenerator) handleIndices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.IndicesResponse{
		Indices:    sg.Indices(),
		LastUpdate: models.Timestamp{Time: sg.LastUpdate()},
	})
}

// GET /api/market-summary
func (sg *StockGenerator) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.SummaryResponse{
		Summary: sg.Summary(),
		Updated: models.Timestamp{Time: sg.LastUpdate()},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
