// Package server exposes the enrichment pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/progress"
	"github.com/sells-group/enrich-cli/internal/store"
)

const defaultTimeout = 5 * time.Minute

// Enricher runs one enrichment request.
type Enricher interface {
	Run(ctx context.Context, req model.Request, sink progress.Sink) (*model.Result, error)
}

// Options tunes the HTTP surface.
type Options struct {
	// Timeout bounds each request, enrichment included.
	Timeout        time.Duration
	AllowedOrigins []string
}

// Server serves enrichment requests and stored results.
type Server struct {
	enricher Enricher
	store    store.Store
	opts     Options
}

// New creates a Server. The store may be nil, in which case stored-result
// routes answer 503.
func New(e Enricher, st store.Store, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{enricher: e, store: st, opts: opts}
}

// EnrichResponse is the body of a successful POST /v1/enrich.
type EnrichResponse struct {
	Result   *model.Result    `json:"result"`
	Timeline []progress.Event `json:"timeline"`
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/enrich", s.enrich)
		r.Get("/companies", s.listCompanies)
		r.Get("/companies/{domain}", s.getCompany)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) enrich(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	rec := &progress.Recorder{}
	sink := progress.Multi{rec, progress.NewLogSink(zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context()))))}

	res, err := s.enricher.Run(r.Context(), req, sink)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("server: enrichment failed", zap.String("domain", req.Domain), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	timeline := rec.Events()
	if timeline == nil {
		timeline = []progress.Event{}
	}
	writeJSON(w, http.StatusOK, EnrichResponse{Result: res, Timeline: timeline})
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	domain, err := pipeline.NormalizeDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.store.GetResult(r.Context(), domain)
	if err != nil {
		zap.L().Error("server: get result", zap.String("domain", domain), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "no enrichment stored for "+domain)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	q := r.URL.Query()
	filter := store.ResultFilter{ICPOnly: q.Get("icp_only") == "true"}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	summaries, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// statusFor maps a pipeline failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidDomain):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrConfig):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
