package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trendgate/trendgate/internal/config"
	"github.com/trendgate/trendgate/internal/engine"
	"github.com/trendgate/trendgate/internal/feed"
	"github.com/trendgate/trendgate/internal/httpapi"
	"github.com/trendgate/trendgate/internal/journal"
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/metrics"
	"github.com/trendgate/trendgate/internal/snapshot"
)

var version = "dev"

var (
	configPath     string
	sessionsPath   string
	sessionProfile string
	logLevel       string

	accountBalance float64
	replayPrimary  string
	replayHigher   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendgate",
		Short: "Trend-following trade decision engine",
		Long: `TrendGate evaluates closed bars through a fixed pipeline of context
classification, admission gates, signal confirmation, breakout reaction
tracking, and risk-based sizing, emitting order intents for a broker
host to execute.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults used when empty)")
	rootCmd.PersistentFlags().StringVar(&sessionsPath, "sessions", "", "Path to session profiles YAML")
	rootCmd.PersistentFlags().StringVar(&sessionProfile, "session-profile", "", "Session profile to apply (defaults to the file's active profile)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay CSV bar history through the engine",
		RunE:  runReplay,
	}
	replayCmd.Flags().Float64Var(&accountBalance, "balance", 10000, "Simulated account balance")
	replayCmd.Flags().StringVar(&replayPrimary, "primary", "", "Primary timeframe CSV (overrides config)")
	replayCmd.Flags().StringVar(&replayHigher, "higher", "", "Higher timeframe CSV (overrides config)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Evaluate a live websocket bar feed",
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&accountBalance, "balance", 10000, "Account balance used for sizing")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trendgate %s\n", version)
		},
	}

	rootCmd.AddCommand(replayCmd, liveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	if findings := cfg.Validate(); len(findings) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", findings)
	}
	if err := applySessionProfile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySessionProfile overrides the admission window from a session
// profiles file when one is given on the command line.
func applySessionProfile(cfg *config.Config) error {
	if sessionsPath == "" {
		return nil
	}

	sessions, err := config.LoadSessionsConfig(sessionsPath)
	if err != nil {
		return err
	}
	if sessionProfile != "" {
		sessions.Active = sessionProfile
	}

	profile, err := sessions.GetActiveProfile()
	if err != nil {
		return err
	}
	if findings := profile.Validate(); len(findings) > 0 {
		return fmt.Errorf("invalid session profile: %v", findings)
	}

	cfg.Admission = *profile.GateConfig()
	log.Info().Str("profile", profile.Name).Int("start_hour", profile.StartHour).
		Int("end_hour", profile.EndHour).Msg("Session profile applied")
	return nil
}

func openJournal(ctx context.Context, cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	store, err := journal.Open(cfg.Journal.DSN, log.Logger)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	primaryPath := cfg.Feed.PrimaryCSV
	if replayPrimary != "" {
		primaryPath = replayPrimary
	}
	if primaryPath == "" {
		return fmt.Errorf("no primary CSV configured; pass --primary or set feed.primary_csv")
	}
	higherPath := cfg.Feed.HigherCSV
	if replayHigher != "" {
		higherPath = replayHigher
	}

	set := metrics.NewSet()
	eng, err := engine.New(cfg, log.Logger, set)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	primary, err := feed.LoadCSV(primaryPath)
	if err != nil {
		return err
	}
	var higher []market.Bar
	if higherPath != "" {
		higher, err = feed.LoadCSV(higherPath)
		if err != nil {
			return err
		}
	}

	log.Info().Int("primary_bars", len(primary)).Int("higher_bars", len(higher)).
		Str("symbol", cfg.Symbol.Symbol).Msg("Starting replay")

	env := engine.Environment{
		Account: market.Account{Balance: accountBalance, Currency: "USD"},
	}

	intents := 0
	nextHigher := 0
	for _, bar := range primary {
		for nextHigher < len(higher) && !higher[nextHigher].Timestamp.After(bar.Timestamp) {
			if err := eng.OnHigherBar(higher[nextHigher]); err != nil {
				log.Warn().Err(err).Msg("Skipping higher bar")
			}
			nextHigher++
		}

		env.Now = bar.Timestamp
		intent, diag, err := eng.OnBar(bar, env)
		if err != nil {
			log.Warn().Err(err).Time("bar", bar.Timestamp).Msg("Skipping bar")
			continue
		}

		if intent != nil {
			intents++
			log.Info().Str("id", intent.ID).Str("side", intent.Side.String()).
				Float64("volume", intent.Volume).Time("at", intent.Timestamp).
				Msg("Order intent emitted")
			if store != nil {
				if err := store.RecordOrderIntent(ctx, *intent, diag.Context); err != nil {
					log.Warn().Err(err).Msg("Journal write failed")
				}
			}
			// Replay treats every intent as filled.
			eng.RecordFill(bar.Timestamp)
		}
	}

	log.Info().Int("bars", len(primary)).Int("intents", intents).Msg("Replay complete")
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Feed.WebsocketURL == "" {
		return fmt.Errorf("no websocket feed configured; set feed.websocket_url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	set := metrics.NewSet()
	eng, err := engine.New(cfg, log.Logger, set)
	if err != nil {
		return err
	}

	store, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var publisher *snapshot.Publisher
	if cfg.Snapshot.Enabled {
		publisher, err = snapshot.Connect(ctx, cfg.Snapshot.Addr, cfg.Snapshot.Key,
			time.Duration(cfg.Snapshot.TTLSeconds)*time.Second, log.Logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	server := httpapi.NewServer(cfg.HTTP.Addr, eng, set.Handler(), log.Logger)
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	broker := &brokerState{}

	sweep := func() {
		quote, positions, ok := broker.state()
		if !ok {
			return
		}
		for _, in := range eng.OnTick(quote, positions) {
			log.Info().Str("position_id", in.PositionID).
				Float64("new_stop", in.NewStopLoss).Msg("Trailing stop intent emitted")
			if store != nil {
				if err := store.RecordStopIntent(ctx, in, time.Now().UTC()); err != nil {
					log.Warn().Err(err).Msg("Journal write failed")
				}
			}
		}
	}

	// The engine is single-threaded, so the cron job only signals the
	// main loop to sweep trailing stops; it republishes the snapshot
	// itself, which is safe from any goroutine.
	sweepTicks := make(chan struct{}, 1)
	scheduler := cron.New()
	scheduler.AddFunc("@every 1m", func() {
		select {
		case sweepTicks <- struct{}{}:
		default:
		}
		if publisher != nil {
			if err := publisher.Publish(ctx, eng.LastDiagnostics()); err != nil {
				log.Warn().Err(err).Msg("Snapshot refresh failed")
			}
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	stream := feed.NewStream(feed.StreamConfig{
		URL:        cfg.Feed.WebsocketURL,
		RatePerSec: cfg.Feed.RatePerSec,
	}, log.Logger)

	messages := make(chan feed.Message, 16)
	streamErr := make(chan error, 1)
	go func() { streamErr <- stream.Run(ctx, messages) }()

	log.Info().Str("symbol", cfg.Symbol.Symbol).Str("feed", cfg.Feed.WebsocketURL).
		Msg("Live evaluation started")

	env := engine.Environment{
		Account: market.Account{Balance: accountBalance, Currency: "USD"},
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case err := <-streamErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed stopped: %w", err)
		case <-sweepTicks:
			sweep()
		case msg := <-messages:
			switch msg.Type {
			case feed.MessageQuote:
				if msg.Quote != nil {
					broker.setQuote(*msg.Quote)
					sweep()
				}
			case feed.MessagePositions:
				broker.setPositions(msg.Positions)
			case feed.MessageBar:
				if msg.Bar == nil {
					continue
				}
				bar := *msg.Bar
				env.Now = time.Now().UTC()
				env.OpenPositions = broker.openPositions()
				intent, diag, err := eng.OnBar(bar, env)
				if err != nil {
					log.Warn().Err(err).Time("bar", bar.Timestamp).Msg("Skipping bar")
					continue
				}
				if intent != nil {
					log.Info().Str("id", intent.ID).Str("side", intent.Side.String()).
						Float64("volume", intent.Volume).Msg("Order intent emitted")
					if store != nil {
						if err := store.RecordOrderIntent(ctx, *intent, diag.Context); err != nil {
							log.Warn().Err(err).Msg("Journal write failed")
						}
					}
				}
				if publisher != nil {
					if err := publisher.Publish(ctx, diag); err != nil {
						log.Warn().Err(err).Msg("Snapshot publish failed")
					}
				}
			}
		}
	}
}

// brokerState caches the latest quote and open positions reported by
// the broker bridge. Only the main evaluation loop touches it.
type brokerState struct {
	quote     market.Quote
	hasQuote  bool
	positions []market.Position
}

func (b *brokerState) setQuote(q market.Quote) {
	b.quote = q
	b.hasQuote = true
}

func (b *brokerState) setPositions(ps []market.Position) {
	b.positions = ps
}

func (b *brokerState) openPositions() []market.Position {
	return b.positions
}

func (b *brokerState) state() (market.Quote, []market.Position, bool) {
	return b.quote, b.positions, b.hasQuote
}
