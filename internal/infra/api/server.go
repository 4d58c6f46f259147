// Package api hosts the operational HTTP surface: health probe, Prometheus
// scrape endpoint and the bearer-guarded operator API under /api/v1.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-support-bot/internal/config"
	"telegram-support-bot/internal/infra/api/apiv1"
)

const requestTimeout = 15 * time.Second

type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg *config.AdminConfig, v1 *apiv1.Server, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminServer").Logger()

	r := chi.NewRouter()
	r.Use(Recover(&l), TraceID(), RequestLog(&l), Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Bearer(cfg.Token))
		apiv1.RegisterAPIV1(r, v1)
	})

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: &l,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
