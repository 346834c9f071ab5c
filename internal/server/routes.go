package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"buttonrace/internal/config"
	"buttonrace/internal/db"
	"buttonrace/internal/events"
	"buttonrace/internal/game"
	"buttonrace/internal/natsbus"
	"buttonrace/internal/roundcache"
	"buttonrace/internal/roundstate"
	"buttonrace/internal/wshub"
)

// Run wires the whole service together and serves until the listener fails.
// Postgres is required; Redis and NATS are optional and the service degrades
// to Postgres-only reads and websocket-only events without them.
func Run() error {
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	hub := wshub.NewHub()
	pubs := events.Fanout{hub}

	var cache *roundcache.Cache
	if cfg.RedisAddr != "" {
		cache, err = roundcache.Connect(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, resync reads fall back to Postgres")
			cache = nil
		} else {
			defer cache.Close()
			pubs = append(pubs, cache)
		}
	} else {
		log.Info().Msg("REDIS_ADDR not set, resync reads served from Postgres")
	}

	if cfg.NatsURL != "" {
		bus, err := natsbus.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, events stay websocket-only")
		} else {
			defer bus.Close()
			pubs = append(pubs, bus)
		}
	} else {
		log.Info().Msg("NATS_URL not set, events stay websocket-only")
	}

	coord := game.New(database, roundstate.New(), pubs, cfg.RankingSize)

	srv := &Server{
		Coordinator: coord,
		Rounds:      database,
		Hub:         hub,
		JWTSecret:   cfg.JWTSecret,
		RankingSize: cfg.RankingSize,
	}
	if cache != nil {
		srv.Cache = cache
	}

	mux := newMux(srv)

	addr := "0.0.0.0:" + cfg.Port
	log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, mux)
}

func newMux(srv *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rounds/start", srv.handleStartRound)
	mux.HandleFunc("POST /api/rounds/click", srv.handleClick)
	mux.HandleFunc("GET /api/rounds/current", srv.handleCurrentRound)
	mux.HandleFunc("GET /api/rounds/{id}", srv.handleGetRound)
	mux.HandleFunc("GET /api/rounds/{id}/ranking", srv.handleGetRanking)
	mux.HandleFunc("GET /ws", srv.handleWS)
	mux.HandleFunc("GET /health", srv.handleHealth)
	return mux
}
