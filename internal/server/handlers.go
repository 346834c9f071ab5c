package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/auth"
	"buttonrace/internal/db"
	"buttonrace/internal/events"
	"buttonrace/internal/game"
	"buttonrace/internal/roundcache"
	"buttonrace/internal/wshub"
)

// coordinator is the round flow the handlers drive.
type coordinator interface {
	StartRound(ctx context.Context, buttonCount int, requestedBy uuid.UUID) (game.RoundStart, error)
	RegisterClick(ctx context.Context, playerID uuid.UUID, buttonIndex int, roundIDHint uuid.UUID) (game.ClickResult, error)
}

// roundReader serves the read-only round endpoints.
type roundReader interface {
	GetRound(ctx context.Context, roundID uuid.UUID) (db.Round, error)
	CurrentRound(ctx context.Context) (db.Round, error)
	TopRanking(ctx context.Context, roundID uuid.UUID, limit int) ([]events.RankingEntry, error)
	Stats(ctx context.Context, roundID uuid.UUID) (db.RoundStats, error)
}

// roundCache is the optional Redis snapshot in front of roundReader.
type roundCache interface {
	Current(ctx context.Context) (*roundcache.Snapshot, error)
}

type Server struct {
	Coordinator coordinator
	Rounds      roundReader
	Cache       roundCache // nil if Redis not configured
	Hub         *wshub.Hub
	JWTSecret   string
	RankingSize int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// identity authenticates the request, writing a 401 on failure.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := auth.FromRequest(s.JWTSecret, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Identity{}, false
	}
	return id, true
}

// writeGameError maps coordinator errors onto HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrRoundNotActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("round operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if id.Role != auth.RoleOperator {
		writeError(w, http.StatusForbidden, "operator role required")
		return
	}

	var req struct {
		ButtonCount int `json:"button_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.Coordinator.StartRound(r.Context(), req.ButtonCount, id.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		ButtonIndex int       `json:"button_index"`
		RoundID     uuid.UUID `json:"round_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.Coordinator.RegisterClick(r.Context(), id.PlayerID, req.ButtonIndex, req.RoundID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// currentRoundView is what resyncing clients see; the winning index never
// appears here.
type currentRoundView struct {
	RoundID     uuid.UUID  `json:"round_id"`
	ButtonCount int        `json:"button_count"`
	StartedAt   time.Time  `json:"started_at"`
	Finished    bool       `json:"finished"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
}

func (s *Server) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}

	if s.Cache != nil {
		snap, err := s.Cache.Current(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("round cache read failed, falling back to database")
		} else if snap != nil {
			writeJSON(w, http.StatusOK, currentRoundView{
				RoundID:     snap.RoundID,
				ButtonCount: snap.ButtonCount,
				StartedAt:   snap.StartedAt,
				Finished:    snap.Finished,
				WinnerID:    snap.WinnerID,
			})
			return
		}
	}

	round, err := s.Rounds.CurrentRound(r.Context())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no rounds yet")
			return
		}
		log.Error().Err(err).Msg("failed to load current round")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, currentRoundView{
		RoundID:     round.ID,
		ButtonCount: round.ButtonCount,
		StartedAt:   round.StartedAt,
		Finished:    !round.Active,
		WinnerID:    round.WinnerID,
	})
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, err := s.Rounds.GetRound(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round not found")
			return
		}
		log.Error().Err(err).Msg("failed to load round")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	stats, err := s.Rounds.Stats(r.Context(), roundID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load round stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"round": round,
		"stats": stats,
	})
}

func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	if _, err := s.Rounds.GetRound(r.Context(), roundID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round not found")
			return
		}
		log.Error().Err(err).Msg("failed to load round")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries, err := s.Rounds.TopRanking(r.Context(), roundID, s.RankingSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to load ranking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round_id": roundID,
		"entries":  entries,
		"limit":    s.RankingSize,
	})
}
