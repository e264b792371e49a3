package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/trendgate/trendgate/internal/market"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	readTimeout   = 90 * time.Second
)

// StreamConfig configures the live bar stream.
type StreamConfig struct {
	URL        string  `yaml:"url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// Message kinds pushed by the broker bridge.
const (
	MessageBar       = "bar"
	MessageQuote     = "quote"
	MessagePositions = "positions"
)

// Message is one envelope on the host feed. The broker bridge streams
// closed bars, top-of-book quotes, and open-position updates over the
// same socket; exactly one payload field is set per message.
type Message struct {
	Type      string            `json:"type"`
	Bar       *market.Bar       `json:"bar,omitempty"`
	Quote     *market.Quote     `json:"quote,omitempty"`
	Positions []market.Position `json:"positions,omitempty"`
}

// Stream consumes broker-bridge messages over a websocket feed and
// delivers them to a channel. Disconnects trigger reconnection with
// exponential backoff; inbound messages are throttled so a bursty feed
// cannot outpace the evaluation loop.
type Stream struct {
	config  StreamConfig
	log     zerolog.Logger
	limiter *rate.Limiter
	dialer  *websocket.Dialer
}

// NewStream creates a stream client. A non-positive rate disables
// throttling.
func NewStream(config StreamConfig, log zerolog.Logger) *Stream {
	var limiter *rate.Limiter
	if config.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSec), 1)
	}

	return &Stream{
		config:  config,
		log:     log.With().Str("component", "feed").Logger(),
		limiter: limiter,
		dialer:  websocket.DefaultDialer,
	}
}

// Run pumps messages into out until ctx is cancelled. The channel is
// not closed by Run; ownership stays with the caller.
func (s *Stream) Run(ctx context.Context, out chan<- Message) error {
	backoff := reconnectBase

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.consume(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("Feed disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (s *Stream) consume(ctx context.Context, out chan<- Message) error {
	conn, _, err := s.dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial feed %s: %w", s.config.URL, err)
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watcherDone:
		}
	}()

	s.log.Info().Str("url", s.config.URL).Msg("Feed connected")

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("feed deadline set failed: %w", err)
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed read failed: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn().Err(err).Msg("Skipping malformed feed message")
			continue
		}
		switch msg.Type {
		case MessageBar, MessageQuote, MessagePositions:
		default:
			s.log.Warn().Str("type", msg.Type).Msg("Skipping unknown feed message type")
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
