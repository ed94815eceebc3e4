// Package server exposes the scan progress read model over HTTP: list
// recent jobs per tenant, poll one job, request cancellation.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"PriceScout/internal/cache"
	"PriceScout/internal/database"

	"github.com/google/uuid"
)

const defaultListLimit = 20

// Handler builds the API mux. Split from Start so tests can drive it
// through httptest.
func Handler(repo *database.Repository, c *cache.Cache) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scans", listScansHandler(repo, c))
	mux.HandleFunc("GET /scans/{id}", getScanHandler(repo))
	mux.HandleFunc("POST /scans/{id}/cancel", cancelScanHandler(repo))
	return mux
}

// Start serves the API until the listener fails.
func Start(repo *database.Repository, c *cache.Cache, port int) {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting scan API server on %s", addr)
	log.Printf("Endpoints: GET /scans?tenant=  GET /scans/{id}  POST /scans/{id}/cancel")

	if err := http.ListenAndServe(addr, Handler(repo, c)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func listScansHandler(repo *database.Repository, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := r.URL.Query().Get("tenant")
		if tenant == "" {
			http.Error(w, "tenant query parameter is required", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 {
			limit = defaultListLimit
		}

		// The list is read far more often than scans finish; completed
		// scans invalidate the tenant's entries.
		key := cache.Key(tenant, "scan-list", strconv.Itoa(limit))
		if cached, ok := c.Get(key); ok {
			writeJSON(w, cached)
			return
		}

		jobs, err := repo.ListScanJobs(tenant, limit)
		if err != nil {
			http.Error(w, "Failed to list scans", http.StatusInternalServerError)
			return
		}
		c.Set(key, jobs)
		writeJSON(w, jobs)
	}
}

func getScanHandler(repo *database.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := scanID(w, r)
		if !ok {
			return
		}
		job, err := repo.GetScanJob(id)
		if err != nil {
			scanError(w, err)
			return
		}
		writeJSON(w, job.ProgressView())
	}
}

func cancelScanHandler(repo *database.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := scanID(w, r)
		if !ok {
			return
		}
		if err := repo.RequestScanCancel(id); err != nil {
			if err == database.ErrNotFound {
				// Unknown job, or one already in a terminal state.
				job, gerr := repo.GetScanJob(id)
				if gerr == nil && job.Status.Terminal() {
					http.Error(w, "scan already finished", http.StatusConflict)
					return
				}
				http.Error(w, "scan not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to cancel scan", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]string{"status": "cancel requested"})
	}
}

func scanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid scan id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func scanError(w http.ResponseWriter, err error) {
	if err == database.ErrNotFound {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Failed to load scan", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
