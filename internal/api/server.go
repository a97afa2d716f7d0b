/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/eoepca/check-manager/internal/backends"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/metrics"
)

// Version is the service version (set at build time)
var Version = "dev"

// Server is the JSON:API server
type Server struct {
	backend backends.CheckBackend
	hooks   *hooks.Registry
	baseURL string
	addr    string
	server  *http.Server
}

// ServerOptions contains options for creating the server
type ServerOptions struct {
	Backend backends.CheckBackend
	Hooks   *hooks.Registry

	// BaseURL is the absolute URL the service is reachable at; self and
	// root links are composed from it.
	BaseURL string

	// ListenAddress defaults to :8080
	ListenAddress string
}

// NewServer creates a new API server
func NewServer(opts ServerOptions) *Server {
	if opts.ListenAddress == "" {
		opts.ListenAddress = ":8080"
	}
	return &Server{
		backend: opts.Backend,
		hooks:   opts.Hooks,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		addr:    opts.ListenAddress,
	}
}

// Start starts the API server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	logger := log.With().Str("component", "api-server").Logger()

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", s.addr).Msg("starting API server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Routes configures the router
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(requestMetrics)

	h := NewHandlers(s.backend, s.hooks, s.baseURL)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", h.GetRoot)

		r.Get("/check_templates/", h.ListCheckTemplates)
		r.Get("/check_templates/{checkTemplateID}", h.GetCheckTemplate)

		r.Get("/checks/", h.ListChecks)
		r.Post("/checks/", h.CreateCheck)
		r.Get("/checks/{checkID}", h.GetCheck)
		r.Delete("/checks/{checkID}", h.RemoveCheck)
		r.Post("/checks/{checkID}/run/", h.RunCheck)
	})

	// Schema and documentation targets of the root document's links
	r.Get("/openapi.json", h.GetOpenAPI)
	r.Get("/docs", h.GetDocs)

	// Operational endpoints live outside the JSON:API surface
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestMetrics records request counts and latency per chi route pattern
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}
