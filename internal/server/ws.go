package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/wshub"
)

const sendBufferSize = 32

// handleWS upgrades the connection, attaches it to the hub, and serves the
// client's click and resync messages until it disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept failed")
		return
	}

	client := &wshub.Client{
		ID:       uuid.New().String(),
		PlayerID: id.PlayerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
	}
	s.Hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)

	defer func() {
		s.Hub.Unregister(client.ID)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	log.Info().
		Str("connection_id", client.ID).
		Str("player_id", id.PlayerID.String()).
		Msg("websocket connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info().
				Str("connection_id", client.ID).
				Msg("websocket disconnected")
			return
		}

		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendTo(client, wshub.ServerMessage{Type: "error", Payload: "bad message"})
			continue
		}

		switch msg.Type {
		case "click":
			res, err := s.Coordinator.RegisterClick(ctx, id.PlayerID, msg.ButtonIndex, msg.RoundID)
			if err != nil {
				s.sendTo(client, wshub.ServerMessage{Type: "click_rejected", Payload: err.Error()})
				continue
			}
			s.sendTo(client, wshub.ServerMessage{Type: "click_result", Payload: res})
		case "state":
			s.sendTo(client, s.stateMessage(r))
		default:
			s.sendTo(client, wshub.ServerMessage{Type: "error", Payload: "unknown message type"})
		}
	}
}

// stateMessage builds a resync snapshot for a single client.
func (s *Server) stateMessage(r *http.Request) wshub.ServerMessage {
	if s.Cache != nil {
		snap, err := s.Cache.Current(r.Context())
		if err == nil && snap != nil {
			return wshub.ServerMessage{Type: "state", Payload: currentRoundView{
				RoundID:     snap.RoundID,
				ButtonCount: snap.ButtonCount,
				StartedAt:   snap.StartedAt,
				Finished:    snap.Finished,
				WinnerID:    snap.WinnerID,
			}}
		}
	}

	round, err := s.Rounds.CurrentRound(r.Context())
	if err != nil {
		return wshub.ServerMessage{Type: "state", Payload: nil}
	}
	return wshub.ServerMessage{Type: "state", Payload: currentRoundView{
		RoundID:     round.ID,
		ButtonCount: round.ButtonCount,
		StartedAt:   round.StartedAt,
		Finished:    !round.Active,
		WinnerID:    round.WinnerID,
	}}
}

func (s *Server) sendTo(c *wshub.Client, msg wshub.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal ws reply")
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
