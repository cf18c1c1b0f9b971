package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
)

// Service identity reported by the root endpoint
const (
	ServiceName = "Employee Attrition Risk API"
	Version     = "1.0.0"
)

// Server provides HTTP API endpoints
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *logging.Logger
	metrics    *metrics.Metrics

	predictions *PredictionHandler
	runs        *TrainingRunHandler
}

// NewServer creates a new API server listening on port. m may be nil, in
// which case /metrics is not registered.
func NewServer(port string, predictions *PredictionHandler, runs *TrainingRunHandler, m *metrics.Metrics, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger.With(logging.Component("http")),
		metrics:     m,
		predictions: predictions,
		runs:        runs,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/docs", s.handleDocs).Methods(http.MethodGet)

	s.router.HandleFunc("/predict", s.predictions.HandlePredict).Methods(http.MethodPost)
	s.router.HandleFunc("/model-info", s.predictions.HandleModelInfo).Methods(http.MethodGet)

	if s.runs != nil {
		s.router.HandleFunc("/training-runs", s.runs.HandleListRuns).Methods(http.MethodGet)
		s.router.HandleFunc("/training-runs/{id}", s.runs.HandleGetRun).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// Handler returns the router wrapped with CORS for all origins
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("starting API server", logging.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "Online",
		"service": ServiceName,
		"version": Version,
		"docs":    "/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type routeDoc struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// handleDocs lists the registered routes
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	var routes []routeDoc
	err := s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		routes = append(routes, routeDoc{Path: path, Methods: methods})
		return nil
	})
	if err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": Version,
		"routes":  routes,
	})
}
