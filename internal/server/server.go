package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/audit"
	"github.com/presenca/discovery-audit/internal/delivery"
	"github.com/presenca/discovery-audit/internal/report"
	"github.com/presenca/discovery-audit/internal/store"
)

// Server exposes the audit engine over HTTP.
type Server struct {
	store     store.Store
	audits    *audit.Service
	deliverer *delivery.Deliverer
	pdf       *report.PDFRenderer
	http      *http.Server
}

// New creates the HTTP server with routes wired.
func New(port int, st store.Store, audits *audit.Service, deliverer *delivery.Deliverer, pdf *report.PDFRenderer) *Server {
	s := &Server{
		store:     st,
		audits:    audits,
		deliverer: deliverer,
		pdf:       pdf,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/audits", func(r chi.Router) {
		r.Post("/", s.handleCreateAudit)
		r.Get("/{id}", s.handleGetAudit)
		r.Get("/{id}/competitors", s.handleListCompetitors)
		r.Post("/{id}/send-whatsapp", s.handleSendWhatsApp)
		r.Get("/{id}/report", s.handleReport)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	zap.L().Info("server: listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
