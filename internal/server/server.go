package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesruggles/alertavecinal/internal/config"
	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/export"
	"github.com/jamesruggles/alertavecinal/internal/intake"
	"github.com/jamesruggles/alertavecinal/internal/metrics"
)

type Options struct {
	Analyzer intake.ImageAnalyzer
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served on /metrics when set
	Logger   *slog.Logger
}

type Server struct {
	cfg     *config.Config
	db      *database.DB
	hub     *Hub
	intake  *intake.Service
	export  *export.Generator
	metrics *metrics.Metrics
	gather  prometheus.Gatherer
	logger  *slog.Logger
	mux     *http.ServeMux
	now     func() time.Time
}

func New(cfg *config.Config, db *database.DB, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var gauge SubscriberGauge
	if opts.Metrics != nil {
		gauge = opts.Metrics
	}
	hub := NewHub(gauge, logger)

	var recorder intake.Recorder
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}

	s := &Server{
		cfg: cfg,
		db:  db,
		hub: hub,
		intake: intake.NewService(db, opts.Analyzer, intake.Options{
			UploadDir:      cfg.Uploads.Directory,
			MaxUploadBytes: cfg.Uploads.MaxBytes,
			Feed:           hub,
			Recorder:       recorder,
			Logger:         logger,
		}),
		export:  export.NewGenerator(db, cfg.Export.FontPath),
		metrics: opts.Metrics,
		gather:  opts.Gatherer,
		logger:  logger,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}

	s.registerRoutes()
	return s
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return recoveryMiddleware(s.logger,
		securityHeaders(
			corsMiddleware(s.cfg.Server.FrontendOrigin)(
				loggingMiddleware(s.logger, s.metrics, s.mux))))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.CloseAll()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Citizen reports
	s.mux.HandleFunc("POST /api/reports", s.handleCreateReport)
	s.mux.HandleFunc("GET /api/reports", s.handleListReports)
	s.mux.HandleFunc("GET /api/reports/nearby", s.handleNearbyReports)
	s.mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	s.mux.HandleFunc("GET /api/heatmap", s.handleHeatmap)

	// Escape-route tracking
	s.mux.HandleFunc("POST /api/reports/{id}/track", s.handleAppendTrack)
	s.mux.HandleFunc("GET /api/reports/{id}/track", s.handleListTrack)

	// Authorities panel
	s.mux.HandleFunc("GET /api/admin/reports", s.handleAdminReports)
	s.mux.HandleFunc("PATCH /api/admin/reports/{id}/status", s.handleChangeStatus)
	s.mux.HandleFunc("GET /api/admin/stats", s.handleStats)

	s.mux.HandleFunc("POST /api/panic", s.handlePanic)

	// HSEQ
	s.mux.HandleFunc("POST /api/hseq", s.handleCreateHseq)
	s.mux.HandleFunc("GET /api/hseq", s.handleListHseq)
	s.mux.HandleFunc("PATCH /api/hseq/{id}/status", s.handleChangeHseqStatus)
	s.mux.HandleFunc("GET /api/hseq/summary", s.handleHseqSummary)
	s.mux.HandleFunc("GET /api/hseq/summary/export", s.handleHseqExport)

	s.mux.HandleFunc("GET /api/uploads/{name}", s.handleUpload)

	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)

	if s.gather != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}
}
