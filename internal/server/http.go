// Package server exposes the read-only query API plus health and metrics
// endpoints over HTTP/JSON. All mutations enter through the NATS command
// surface; this server never writes.
package server

import (
	"StakeLedger/internal/observability"
	"StakeLedger/internal/query"
	"StakeLedger/internal/store"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	addr    string
	queries *query.Service
	health  *observability.HealthChecker
	log     zerolog.Logger
	srv     *http.Server
}

func NewHTTPServer(addr string, queries *query.Service, health *observability.HealthChecker, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{addr: addr, queries: queries, health: health, log: log}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.health.LivenessHandler)
	mux.HandleFunc("/readyz", s.health.ReadinessHandler)

	mux.HandleFunc("GET /v1/systems/{id}", s.getSystem)
	mux.HandleFunc("GET /v1/systems/{id}/players", s.listPlayers)
	mux.HandleFunc("GET /v1/systems/{id}/transactions", s.systemTransactions)
	mux.HandleFunc("GET /v1/systems/{id}/settlements", s.systemSettlements)
	mux.HandleFunc("GET /v1/players/{id}", s.getPlayer)
	mux.HandleFunc("GET /v1/players/{id}/transactions", s.playerTransactions)
	mux.HandleFunc("GET /v1/feed", s.feed)

	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) getSystem(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.GetSystem(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) getPlayer(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.GetPlayer(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) listPlayers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.ListPlayers(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) playerTransactions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.PlayerTransactions(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) systemTransactions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.SystemTransactions(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) systemSettlements(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.SystemSettlements(r.PathValue("id"))
	s.respond(w, resp, err)
}

func (s *HTTPServer) feed(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.respond(w, s.queries.Feed(offset, limit), nil)
}

func (s *HTTPServer) respond(w http.ResponseWriter, payload any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		if store.IsNotFound(err) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}
