package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"feedsync/models"
	"feedsync/services"
	"github.com/gorilla/mux"
)

const (
	defaultPage  = 1
	defaultLimit = 100
)

type Ingester interface {
	Ingest(ctx context.Context, ownerID *string) (*models.IngestionReport, error)
}

type Catalog interface {
	List(ctx context.Context, q models.CatalogQuery) (*models.CatalogPage, error)
	Get(ctx context.Context, listingID string) (*models.CatalogRow, error)
}

// RunLister exposes ingestion run history.
type RunLister interface {
	GetRecentRuns(limit int) ([]models.IngestionRun, error)
}

// Server exposes ingestion and catalog reads over HTTP.
type Server struct {
	ingester Ingester
	catalog  Catalog
	runs     RunLister
	router   *mux.Router
}

func NewServer(ingester Ingester, catalog Catalog) *Server {
	s := &Server{ingester: ingester, catalog: catalog, router: mux.NewRouter()}
	s.routes()
	return s
}

// SetRuns enables GET /api/runs.
func (s *Server) SetRuns(runs RunLister) {
	s.runs = runs
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/listings/ingest", s.handleIngest).Methods("POST")
	// keeps GET /listings/ingest from falling through to the id route
	api.HandleFunc("/listings/ingest", methodNotAllowed)
	api.HandleFunc("/listings", s.handleList).Methods("GET")
	api.HandleFunc("/listings/{listing_id}", s.handleGet).Methods("GET")
	api.HandleFunc("/runs", s.handleRuns).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ownerID := optionalParam(r, "owner_id")

	report, err := s.ingester.Ingest(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, services.ErrFetchFailed) {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		log.Printf("Ingest error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", defaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.catalog.List(r.Context(), models.CatalogQuery{
		OwnerID: optionalParam(r, "owner_id"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		log.Printf("Catalog error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	row, err := s.catalog.Get(r.Context(), mux.Vars(r)["listing_id"])
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		log.Printf("Catalog error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, errors.New("run history not configured"))
		return
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, &paramError{name: "limit", value: r.URL.Query().Get("limit")})
		return
	}

	runs, err := s.runs.GetRecentRuns(limit)
	if err != nil {
		log.Printf("Run history error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []models.IngestionRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func optionalParam(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{name: name, value: v}
	}
	return n, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
