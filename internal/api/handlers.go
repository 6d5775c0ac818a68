package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/enrich"
	"github.com/sydlexius/liner/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTriggerEnrich runs one batch for the field and returns its summary.
// The batch runs on the request context: a client that disconnects stops
// the batch after the artist in flight.
// POST /api/v1/enrich/{field}?limit=N
func (r *Router) handleTriggerEnrich(w http.ResponseWriter, req *http.Request) {
	field, ok := artist.ParseField(req.PathValue("field"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown field")
		return
	}
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	sum, err := r.runner.Run(req.Context(), field, limit, "api")
	switch {
	case errors.Is(err, enrich.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		r.logger.Error("triggered batch failed", "field", field, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleListRuns returns recent batch runs, newest first.
// GET /api/v1/runs?limit=N
func (r *Router) handleListRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := r.artistService.ListRuns(req.Context(), intQuery(req, "limit", 20))
	if err != nil {
		r.logger.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []artist.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handlePending returns how many artists each field still has to process.
// GET /api/v1/pending
func (r *Router) handlePending(w http.ResponseWriter, req *http.Request) {
	counts := make(map[artist.Field]int)
	for _, f := range artist.AllFields() {
		n, err := r.artistService.CountPending(req.Context(), f)
		if err != nil {
			r.logger.Error("counting pending artists", "field", f, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		counts[f] = n
	}
	writeJSON(w, http.StatusOK, counts)
}

// GET /api/v1/artists
func (r *Router) handleListArtists(w http.ResponseWriter, req *http.Request) {
	params := artist.ListParams{
		Page:     intQuery(req, "page", 1),
		PageSize: intQuery(req, "page_size", 50),
		Search:   req.URL.Query().Get("search"),
		Pending:  artist.Field(req.URL.Query().Get("pending")),
	}
	params.Validate()

	artists, total, err := r.artistService.List(req.Context(), params)
	if err != nil {
		r.logger.Error("listing artists", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if artists == nil {
		artists = []artist.Artist{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"artists":   artists,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	})
}

// GET /api/v1/artists/{id}
func (r *Router) handleGetArtist(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}

	a, err := r.artistService.GetByID(req.Context(), id)
	if errors.Is(err, artist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	if err != nil {
		r.logger.Error("getting artist", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
