package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/trendgate/trendgate/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_intents (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	stop_loss_pips DOUBLE PRECISION NOT NULL,
	take_profit_pips DOUBLE PRECISION NOT NULL,
	label TEXT NOT NULL,
	context TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS stop_intents (
	position_id TEXT NOT NULL,
	new_stop_loss DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

// Store persists emitted intents to Postgres for later review. Writes
// run behind a circuit breaker so a degraded database never stalls the
// evaluation loop; journal failures are logged and dropped, not raised.
type Store struct {
	db      *sqlx.DB
	log     zerolog.Logger
	breaker *gobreaker.CircuitBreaker
}

// Open connects to Postgres and wraps the connection in a Store.
func Open(dsn string, log zerolog.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect journal database: %w", err)
	}
	return NewWithDB(db, log), nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sqlx.DB, log zerolog.Logger) *Store {
	logger := log.With().Str("component", "journal").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("Journal breaker state changed")
		},
	})

	return &Store{
		db:      db,
		log:     logger,
		breaker: breaker,
	}
}

// Init creates the journal tables.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// RecordOrderIntent persists one order intent with the context that
// produced it.
func (s *Store) RecordOrderIntent(ctx context.Context, intent market.OrderIntent, marketContext string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx,
			`INSERT INTO order_intents (id, symbol, side, volume, stop_loss_pips, take_profit_pips, label, context, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			intent.ID, intent.Symbol, intent.Side.String(), intent.Volume,
			intent.StopLossPips, intent.TakeProfitPips, intent.Label,
			marketContext, intent.Timestamp)
	})
	if err != nil {
		return fmt.Errorf("failed to record order intent %s: %w", intent.ID, err)
	}
	return nil
}

// RecordStopIntent persists one trailing-stop modification intent.
func (s *Store) RecordStopIntent(ctx context.Context, intent market.StopIntent, at time.Time) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx,
			`INSERT INTO stop_intents (position_id, new_stop_loss, created_at) VALUES ($1, $2, $3)`,
			intent.PositionID, intent.NewStopLoss, at)
	})
	if err != nil {
		return fmt.Errorf("failed to record stop intent for %s: %w", intent.PositionID, err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
