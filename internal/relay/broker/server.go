// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenChatAlytics/ChatAlytics/internal/config"
	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay"
)

const shutdownGrace = 10 * time.Second

// Server is the web tier's HTTP front: it exposes the relay's producer and
// consumer websocket endpoints plus health and metrics.
type Server struct {
	cfg      config.ServerConfig
	broker   *Broker
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewServer builds a Server around broker, routing per cfg.
func NewServer(cfg config.ServerConfig, corsCfg config.CORSConfig, broker *Broker) *Server {
	s := &Server{
		cfg:    cfg,
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS layer for the REST
			// surface; websocket endpoints admit any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsCfg.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get(relay.PublisherPath, s.handleProducer)
	r.Get(relay.SubscriberPath, s.handleConsumer)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", s.handleHealth)
	})
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Timeout,
	}
	return s
}

// Serve runs the HTTP listener until ctx is canceled, then drains with a
// short grace period.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("relay server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay server shutdown: %w", err)
		}
		return ctx.Err()
	}
}

func (s *Server) handleProducer(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("producer upgrade failed")
		return
	}
	s.broker.HandleProducer(conn)
}

func (s *Server) handleConsumer(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("consumer upgrade failed")
		return
	}
	s.broker.HandleConsumer(conn)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":             "ok",
		"producer_connected": s.broker.ProducerConnected(),
		"consumer_sessions":  s.broker.SessionCount(),
	})
}
