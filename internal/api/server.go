package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gitfolio/internal/collector"
	"gitfolio/internal/models"
	"gitfolio/internal/scoring"
	"gitfolio/pkg/cache"
	"gitfolio/pkg/errors"
	"gitfolio/pkg/logger"
	"gitfolio/pkg/metrics"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50

	seedProfileURL = "https://github.com/octocat"

	rateLimitMessage = "GitHub temporarily blocked requests (rate limit). Please wait a bit and try again."
	upstreamMessage  = "Unable to fetch GitHub data right now. Please try again."
)

// Store is the persistence surface the server consumes
type Store interface {
	CreateAnalysis(a *models.Analysis) (*models.Analysis, error)
	GetAnalysis(id string) (*models.Analysis, error)
	ListAnalyses(limit int) ([]*models.Analysis, error)
	Ping() error
}

// Config holds API server configuration
type Config struct {
	Port         string
	EnableCORS   bool
	Seed         bool
	CacheTTL     time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the collector, scoring engine, store, and optional read
// cache behind the HTTP boundary.
type Server struct {
	config    Config
	router    *mux.Router
	store     Store
	collector *collector.Collector
	engine    *scoring.Engine
	cache     *cache.RedisCache
	logger    *logger.Logger
}

// NewServer creates a new API server. The cache may be nil.
func NewServer(cfg Config, store Store, coll *collector.Collector, engine *scoring.Engine, rc *cache.RedisCache, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get()
	}

	s := &Server{
		config:    cfg,
		router:    mux.NewRouter(),
		store:     store,
		collector: coll,
		engine:    engine,
		cache:     rc,
		logger:    log,
	}
	s.setupRoutes()
	return s
}

// Start runs the server until it fails
func (s *Server) Start() error {
	if s.config.Seed {
		go s.seedIfEmpty()
	}

	addr := ":" + s.config.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	return srv.ListenAndServe()
}

// Handler exposes the router (used by tests)
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check and metrics
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Analysis endpoints
	s.router.HandleFunc("/analyses", s.handleCreateAnalysis).Methods("POST")
	s.router.HandleFunc("/analyses", s.handleListAnalyses).Methods("GET")
	s.router.HandleFunc("/analyses/{id}", s.handleGetAnalysis).Methods("GET")
	s.router.HandleFunc("/analyses/{id}/repos", s.handleGetAnalysisRepos).Methods("GET")

	// CORS middleware
	if s.config.EnableCORS {
		s.router.Use(corsMiddleware)
	}

	// Logging + metrics middleware
	s.router.Use(s.loggingMiddleware)
}

// handleCreateAnalysis runs a full collect+score pass and persists the
// result. Validation failures are 400; everything else that goes wrong
// during an analysis surfaces as 503.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProfileURL string `json:"profileUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProfileURL == "" {
		metrics.RecordAnalysis("validation_error")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "profileUrl is required",
			"field":   "profileUrl",
		})
		return
	}

	start := time.Now()

	draft, err := s.collector.Collect(r.Context(), body.ProfileURL)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	result := s.engine.Score(draft.Aggregates)
	analysis := buildAnalysis(draft, result)

	created, err := s.store.CreateAnalysis(analysis)
	if err != nil {
		s.logger.Error().Err(err).Str("username", draft.Username).Msg("failed to store analysis")
		metrics.RecordAnalysis("storage_error")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": upstreamMessage})
		return
	}

	metrics.ObserveAnalysisDuration(time.Since(start).Seconds())
	metrics.ObserveOverallScore(created.ScoreOverall)
	if created.IsPartial {
		metrics.RecordAnalysis("partial")
	} else {
		metrics.RecordAnalysis("created")
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	e, ok := errors.AsError(err)
	if ok && e.Type == errors.ErrorTypeValidation {
		metrics.RecordAnalysis("validation_error")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": e.Message,
			"field":   e.Field,
		})
		return
	}

	s.logger.Warn().Err(err).Msg("analysis failed")
	metrics.RecordAnalysis("upstream_error")

	if ok && e.Type == errors.ErrorTypeRateLimit {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": rateLimitMessage})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": upstreamMessage})
}

// handleListAnalyses returns stored analyses, newest first. An absent or
// out-of-range limit falls back to the default rather than erroring.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= maxListLimit {
			limit = n
		}
	}

	analyses, err := s.store.ListAnalyses(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list analyses")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "failed to list analyses"})
		return
	}

	writeJSON(w, http.StatusOK, analyses)
}

// handleGetAnalysis returns a single analysis by id
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	analysis, err := s.lookupAnalysis(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleGetAnalysisRepos returns the repos sequence of one analysis
func (s *Server) handleGetAnalysisRepos(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	analysis, err := s.lookupAnalysis(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}

	repos := analysis.Repos
	if repos == nil {
		repos = []models.RepoSnapshot{}
	}
	writeJSON(w, http.StatusOK, repos)
}

// lookupAnalysis reads through the cache when one is configured. Stored
// analyses are immutable, so a cached copy can never go stale.
func (s *Server) lookupAnalysis(id string) (*models.Analysis, error) {
	key := "analysis:" + id

	var cached models.Analysis
	if err := s.cache.Get(key, &cached); err == nil {
		return &cached, nil
	}

	analysis, err := s.store.GetAnalysis(id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, analysis, s.config.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("failed to cache analysis")
	}
	return analysis, nil
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.IsType(err, errors.ErrorTypeNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Analysis not found"})
		return
	}
	s.logger.Error().Err(err).Msg("failed to load analysis")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "failed to load analysis"})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := s.store.Ping(); err != nil {
		health["status"] = "unhealthy"
		health["database"] = "error"
		status = http.StatusServiceUnavailable
	} else {
		health["database"] = "ok"
	}

	if s.cache != nil {
		if _, err := s.cache.Exists("health"); err != nil {
			health["cache"] = "error"
		} else {
			health["cache"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}

// seedIfEmpty analyzes one known public profile on first boot so the UI has
// something to show. Best effort: failures (usually rate limiting) are
// logged and dropped.
func (s *Server) seedIfEmpty() {
	existing, err := s.store.ListAnalyses(1)
	if err != nil || len(existing) > 0 {
		return
	}

	draft, err := s.collector.Collect(context.Background(), seedProfileURL)
	if err != nil {
		s.logger.Warn().Err(err).Msg("seed analysis skipped")
		return
	}

	result := s.engine.Score(draft.Aggregates)
	if _, err := s.store.CreateAnalysis(buildAnalysis(draft, result)); err != nil {
		s.logger.Warn().Err(err).Msg("seed analysis not stored")
		return
	}
	s.logger.Info().Msg("seeded initial analysis")
}

// buildAnalysis merges a collector draft and a score bundle into the
// persistable record. Pinned repos are not collected; the count stays 0.
func buildAnalysis(draft *models.AnalysisDraft, result scoring.Result) *models.Analysis {
	return &models.Analysis{
		ProfileURL:           draft.ProfileURL,
		Username:             draft.Username,
		ScoreOverall:         result.Overall,
		ScoreDocumentation:   result.Documentation,
		ScoreCodeQuality:     result.CodeQuality,
		ScoreActivity:        result.Activity,
		ScoreProjectImpact:   result.ProjectImpact,
		ScoreDiscoverability: result.Discoverability,
		RepoCount:            draft.Aggregates.RepoCount,
		PinnedCount:          0,
		TopLanguages:         draft.TopLanguages,
		RecentCommitDays:     draft.Aggregates.RecentCommitDays,
		Strengths:            result.Strengths,
		RedFlags:             result.RedFlags,
		Suggestions:          result.Suggestions,
		Repos:                draft.Repos,
		IsPartial:            draft.IsPartial,
		PartialReason:        draft.PartialReason,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Middleware functions

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(route, strconv.Itoa(rec.status), elapsed.Seconds())
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}
