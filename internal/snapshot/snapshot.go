package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/trendgate/trendgate/internal/engine"
)

// Publisher mirrors the latest evaluation diagnostics into Redis so
// dashboards and sibling processes can read engine state without
// touching the engine itself. Entries expire after the configured TTL
// so a stalled publisher is visible as an absent key.
type Publisher struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewPublisher wires a publisher onto an existing Redis client.
func NewPublisher(client *redis.Client, key string, ttl time.Duration, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		key:    key,
		ttl:    ttl,
		log:    log.With().Str("component", "snapshot").Logger(),
	}
}

// Connect dials Redis at addr and returns a publisher bound to it.
func Connect(ctx context.Context, addr, key string, ttl time.Duration, log zerolog.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect snapshot redis at %s: %w", addr, err)
	}
	return NewPublisher(client, key, ttl, log), nil
}

// Publish stores the diagnostics snapshot under the configured key.
func (p *Publisher) Publish(ctx context.Context, diag *engine.Diagnostics) error {
	if diag == nil {
		return nil
	}

	payload, err := json.Marshal(diag)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics snapshot: %w", err)
	}

	if err := p.client.Set(ctx, p.key, payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to publish diagnostics snapshot: %w", err)
	}

	p.log.Debug().Str("key", p.key).Msg("Snapshot published")
	return nil
}

// Latest reads the most recent snapshot back. Returns nil when the key
// has expired or was never written.
func (p *Publisher) Latest(ctx context.Context) (*engine.Diagnostics, error) {
	payload, err := p.client.Get(ctx, p.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostics snapshot: %w", err)
	}

	var diag engine.Diagnostics
	if err := json.Unmarshal(payload, &diag); err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics snapshot: %w", err)
	}
	return &diag, nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
