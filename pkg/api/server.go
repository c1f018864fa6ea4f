package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/ferret/pkg/coordinator"
	"github.com/cuemby/ferret/pkg/events"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/metrics"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/rs/zerolog"
)

// Server exposes the coordinator over HTTP.
type Server struct {
	coord      *coordinator.Coordinator
	events     *events.Broker
	uploadsDir string
	mux        *http.ServeMux
	httpServer *http.Server
	logger     zerolog.Logger
}

// Config holds API server configuration
type Config struct {
	Coordinator *coordinator.Coordinator
	Events      *events.Broker // optional; nil disables /events/recent content
	UploadsDir  string
}

// NewServer creates the HTTP API server.
func NewServer(cfg Config) *Server {
	mux := http.NewServeMux()
	s := &Server{
		coord:      cfg.Coordinator,
		events:     cfg.Events,
		uploadsDir: cfg.UploadsDir,
		mux:        mux,
		logger:     log.WithComponent("api"),
	}

	mux.HandleFunc("/documents/index", s.submitHandler)
	mux.HandleFunc("/search", s.searchHandler)
	mux.HandleFunc("/index/status", s.statusHandler)
	mux.HandleFunc("/index/save", s.saveHandler)
	mux.HandleFunc("/index/load", s.loadHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/workers/status", s.workersHandler)
	mux.HandleFunc("/events/recent", s.eventsHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Handler returns the server's routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// errorResponse is the error body shape for every endpoint.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// submitRequest optionally overrides the scan path.
type submitRequest struct {
	Path string `json:"path"`
}

// submitResponse reports per-file dispatch outcomes.
type submitResponse struct {
	Message string        `json:"message"`
	Details submitDetails `json:"details"`
}

type submitDetails struct {
	SuccessfulDispatches []string    `json:"successful_dispatches"`
	FailedFiles          [][2]string `json:"failed_files"`
	DocsCurrentlyPending int         `json:"docs_currently_pending"`
}

// submitHandler scans a directory of .txt files and dispatches one indexing
// task per file. Accepted with 202; individual files may still fail, which
// the body reports.
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scanPath := s.uploadsDir
	if r.Body != nil {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Path != "" {
			scanPath = req.Path
		}
	}

	entries, err := os.ReadDir(scanPath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", scanPath).Msg("Uploads directory not readable")
		writeError(w, http.StatusNotFound, "uploads directory not found: "+scanPath)
		return
	}

	details := submitDetails{
		SuccessfulDispatches: []string{},
		FailedFiles:          [][2]string{},
	}
	filesFound := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		filesFound++
		docID := entry.Name()

		content, err := os.ReadFile(filepath.Join(scanPath, docID))
		if err != nil {
			details.FailedFiles = append(details.FailedFiles, [2]string{docID, "failed to read file"})
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			details.FailedFiles = append(details.FailedFiles, [2]string{docID, "file is empty"})
			continue
		}

		task := &types.DocumentTask{
			DocID:    docID,
			Content:  string(content),
			Language: s.coord.Language(),
		}
		if _, _, err := s.coord.Dispatch(r.Context(), task); err != nil {
			s.logger.Warn().Err(err).Str("doc_id", docID).Msg("Dispatch failed")
			details.FailedFiles = append(details.FailedFiles, [2]string{docID, dispatchFailureReason(err)})
			continue
		}
		details.SuccessfulDispatches = append(details.SuccessfulDispatches, docID)
	}

	_, pending, _ := s.coord.Status()
	details.DocsCurrentlyPending = pending

	message := "No .txt files found. Nothing to index."
	if filesFound > 0 {
		message = fmt.Sprintf("Found %d .txt files. Dispatched %d for indexing, %d failed.",
			filesFound, len(details.SuccessfulDispatches), len(details.FailedFiles))
	}
	writeJSON(w, http.StatusAccepted, submitResponse{Message: message, Details: details})
}

func dispatchFailureReason(err error) string {
	if errors.Is(err, coordinator.ErrNoWorkers) {
		return "no workers available"
	}
	return "failed to dispatch task"
}

// searchRequest carries the user's single search term.
type searchRequest struct {
	Term string `json:"term"`
}

// searchResponse lists [doc_id, frequency] pairs sorted by frequency
// descending.
type searchResponse struct {
	Docs []types.DocFrequency `json:"docs"`
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docs, err := s.coord.Search(strings.TrimSpace(req.Term))
	if err != nil {
		if errors.Is(err, coordinator.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "search term cannot be empty")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Docs: docs})
}

// statusResponse reports the index size and pending work.
type statusResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	terms, pending, catalogued := s.coord.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Message: "Current index status.",
		Details: map[string]interface{}{
			"total_terms_in_index":      terms,
			"documents_pending_results": pending,
			"documents_catalogued":      catalogued,
		},
	})
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.coord.SaveCheckpoint(); err != nil {
		s.logger.Error().Err(err).Msg("Checkpoint save failed")
		writeError(w, http.StatusInternalServerError, "failed to save index: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Message: "Global index saved.", Details: map[string]interface{}{}})
}

func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	terms := s.coord.LoadCheckpoint()
	writeJSON(w, http.StatusOK, statusResponse{
		Message: "Global index reloaded.",
		Details: map[string]interface{}{"total_terms_in_index": terms},
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Coordinator is running",
	})
}

// workersResponse lists live workers with their load figures.
type workersResponse struct {
	Workers []types.WorkerLoad `json:"workers"`
}

func (s *Server) workersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	statuses, err := s.coord.WorkersStatus(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Could not read worker statuses")
		writeError(w, http.StatusServiceUnavailable, "cannot reach broker")
		return
	}
	writeJSON(w, http.StatusOK, workersResponse{Workers: statuses})
}

// eventsResponse lists retained indexing events, oldest first.
type eventsResponse struct {
	Events []*events.Event `json:"events"`
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := eventsResponse{Events: []*events.Event{}}
	if s.events != nil {
		resp.Events = s.events.Recent()
	}
	writeJSON(w, http.StatusOK, resp)
}
