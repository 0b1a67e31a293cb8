package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/aluiziolira/sitemap-explorer/parser"
	"github.com/aluiziolira/sitemap-explorer/scraper"
)

const (
	msgURLRequired     = "URL is required"
	msgInvalidBody     = "Invalid request body"
	msgRootUnavailable = "Unable to fetch sitemap.xml"
	msgRootDetail      = "The website does not have a publicly accessible sitemap.xml file, or it blocked our request."
	msgAnalyzeFailed   = "Failed to analyze sitemap"
	msgTooManyRequests = "Too many requests"
)

// maxRequestBody bounds the POST body; a site reference is tiny.
const maxRequestBody = 64 << 10

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	Success bool `json:"success"`
	*models.Report
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

type infoResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, infoResponse{
			Message: "Sitemap Explorer API",
			Endpoints: map[string]string{
				"POST /api/sitemap": "Analyze a website sitemap",
			},
		})
	case http.MethodPost:
		s.analyze(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody, Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgURLRequired})
		return
	}

	origin, err := parser.NormalizeSiteReference(req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgURLRequired, Message: err.Error()})
		return
	}

	if report, ok := s.cache.get(origin); ok {
		slog.Debug("report cache hit", slog.String("site", origin), slog.String("request_id", RequestIDFrom(r.Context())))
		writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Report: report})
		return
	}

	report, err := s.explorer.Explore(r.Context(), origin)
	if err != nil {
		s.writeExploreError(w, r, origin, err)
		return
	}

	if r.Context().Err() == nil {
		s.cache.add(origin, report)
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Report: report})
}

func (s *Server) writeExploreError(w http.ResponseWriter, r *http.Request, origin string, err error) {
	attrs := []any{
		slog.String("site", origin),
		slog.String("request_id", RequestIDFrom(r.Context())),
		slog.Any("error", err),
	}

	var rootErr *scraper.ErrRootUnavailable
	switch {
	case errors.As(err, &rootErr):
		slog.Warn("root sitemap unavailable", attrs...)
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   msgRootUnavailable,
			Message: msgRootDetail,
			Details: rootErr.Err.Error(),
		})
	case errors.Is(err, parser.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgURLRequired, Message: err.Error()})
	default:
		slog.Error("sitemap analysis failed", attrs...)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgAnalyzeFailed, Message: err.Error()})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}
