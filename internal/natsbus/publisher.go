// Package natsbus publishes round events to NATS so other services
// (overlays, prize fulfilment, analytics) can follow rounds without
// holding a websocket to this server.
package natsbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/events"
)

const (
	maxReconnects = -1
	reconnectWait = 2 * time.Second

	subjectRoundStarted    = "race.round.started"
	subjectRankingUpdated  = "race.round.ranking"
	subjectWinnerConfirmed = "race.round.winner"
)

// Publisher forwards round events to NATS subjects. Delivery is fire and
// forget: a failed publish is logged and dropped, never retried, and never
// surfaced to the round flow.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server and returns a Publisher bound to it.
func Connect(url string) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")

	return &Publisher{nc: nc}, nil
}

func (p *Publisher) PublishRoundStarted(e events.RoundStarted) {
	p.publish(subjectRoundStarted, e)
}

func (p *Publisher) PublishRankingUpdated(e events.RankingUpdated) {
	p.publish(subjectRankingUpdated, e)
}

func (p *Publisher) PublishWinnerConfirmed(e events.WinnerConfirmed) {
	p.publish(subjectWinnerConfirmed, e)
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// Close flushes buffered publishes and drains the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
