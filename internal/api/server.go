package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/stats"
	"github.com/Bharath-kolekar/cogone-sub001/internal/storage"
)

// Engine is the minimal contract the API needs.
type Engine interface {
	ScanFile(ctx context.Context, content, path string, tag ir.ContextTag) (ir.Report, error)
	ScanChange(ctx context.Context, baseline, content, path string, tag ir.ContextTag) (ir.Report, error)
	EvaluateChange(ctx context.Context, prop ir.ChangeProposal) (ir.TrickVerdict, error)
	ManipulationReport() stats.Snapshot
	Rules() *patterns.Library
	Detectors() []string

	ListReports(limit, offset int) ([]storage.ReportRow, error)
	LoadReport(id string) (ir.Report, error)
	ListFindings(reportID string, minSeverity ir.Severity) ([]ir.Finding, error)
	VerdictCounts() (storage.VerdictCounts, error)
}

type Server struct {
	Engine         Engine
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if o := s.pickCORSOrigin(r); o != "" {
				w.Header().Set("Access-Control-Allow-Origin", o)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Operations
	mux.HandleFunc("POST /api/v1/scan", withCORS(s.handleScan))
	mux.HandleFunc("POST /api/v1/scan/batch", withCORS(s.handleScanBatch))
	mux.HandleFunc("POST /api/v1/evaluate", withCORS(s.handleEvaluate))
	mux.HandleFunc("GET /api/v1/stats", withCORS(s.handleStats))

	// Rules inventory
	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))

	// Stored reports
	mux.HandleFunc("GET /api/v1/reports", withCORS(s.handleListReports))
	mux.HandleFunc("GET /api/v1/reports/{id}", withCORS(s.handleGetReport))
	mux.HandleFunc("GET /api/v1/reports/{id}/findings", withCORS(s.handleListFindings))

	// Fallback 404
	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return withRequestLog(s.logger(), mux)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	// Not allowed → no CORS header
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"timestamp":     time.Now().UTC(),
		"rules_version": s.Engine.Rules().Version(),
		"detectors":     s.Engine.Detectors(),
	})
}

type scanReq struct {
	Path       string        `json:"path"`
	Content    string        `json:"content"`
	ContextTag ir.ContextTag `json:"context_tag,omitempty"`
	Baseline   *string       `json:"baseline,omitempty"`
}

func (req scanReq) validate() error {
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("path is required")
	}
	if !req.ContextTag.Valid() {
		return errors.New("unknown context_tag " + strconv.Quote(string(req.ContextTag)))
	}
	return nil
}

func (s *Server) scanOne(ctx context.Context, req scanReq) (ir.Report, error) {
	if req.Baseline != nil {
		return s.Engine.ScanChange(ctx, *req.Baseline, req.Content, req.Path, req.ContextTag)
	}
	return s.Engine.ScanFile(ctx, req.Content, req.Path, req.ContextTag)
}

// POST /api/v1/scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanReq
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		s.err(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.scanOne(r.Context(), req)
	if err != nil {
		s.scanErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type batchItem struct {
	Path   string     `json:"path"`
	Report *ir.Report `json:"report,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// POST /api/v1/scan/batch: one result per file, in request order.
func (s *Server) handleScanBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []scanReq `json:"files"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	out := make([]batchItem, 0, len(req.Files))
	for _, f := range req.Files {
		item := batchItem{Path: f.Path}
		if err := f.validate(); err != nil {
			item.Error = err.Error()
		} else if rep, err := s.scanOne(r.Context(), f); err != nil {
			item.Error = err.Error()
		} else {
			item.Report = &rep
		}
		out = append(out, item)
	}
	if err := r.Context().Err(); err != nil {
		s.err(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

// POST /api/v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var prop ir.ChangeProposal
	if !s.decode(w, r, &prop) {
		return
	}
	v, err := s.Engine.EvaluateChange(r.Context(), prop)
	var invalid *ir.InvalidChangeProposalError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "verdict": v})
	case err != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "verdict": v})
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"statistics": s.Engine.ManipulationReport()}
	if vc, err := s.Engine.VerdictCounts(); err == nil {
		body["stored_verdicts"] = vc
	}
	writeJSON(w, http.StatusOK, body)
}

// GET /api/v1/rules
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID         string          `json:"id"`
		Concern    string          `json:"concern"`
		Kind       patterns.Kind   `json:"kind"`
		Summary    string          `json:"summary"`
		Severity   ir.Severity     `json:"severity"`
		Weight     float64         `json:"weight"`
		SuppressIn []ir.ContextTag `json:"suppress_in,omitempty"`
	}
	lib := s.Engine.Rules()
	concern := r.URL.Query().Get("concern")
	out := []R{}
	for _, rr := range lib.List() {
		if concern != "" && rr.Concern != concern {
			continue
		}
		out = append(out, R{
			ID: rr.ID, Concern: rr.Concern, Kind: rr.Kind, Summary: rr.Summary,
			Severity: rr.Severity, Weight: rr.Weight, SuppressIn: rr.SuppressIn,
		})
	}
	// stable order already guaranteed by List()
	writeJSON(w, http.StatusOK, map[string]any{"version": lib.Version(), "items": out, "count": len(out)})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)

	rows, err := s.Engine.ListReports(limit, offset)
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Engine.LoadReport(r.PathValue("id"))
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	minSev := ir.SeverityLow
	if v := r.URL.Query().Get("min_severity"); v != "" {
		sev, ok := ir.ParseSeverity(v)
		if !ok {
			s.err(w, http.StatusBadRequest, "unknown min_severity "+strconv.Quote(v))
			return
		}
		minSev = sev
	}
	items, err := s.Engine.ListFindings(id, minSev)
	if err != nil {
		s.storeErr(w, err)
		return
	}
	if items == nil {
		items = []ir.Finding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report_id": id, "min_severity": minSev, "items": items,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = 4 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.err(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.err(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func (s *Server) scanErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ir.ErrNoDetectorsAvailable):
		s.err(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.err(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.err(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) storeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.err(w, http.StatusNotFound, "report not found")
	case errors.Is(err, storage.ErrNoDatabase):
		s.err(w, http.StatusNotImplemented, err.Error())
	default:
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
	}
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
