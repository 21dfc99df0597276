package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"modguard/internal/alert"
	"modguard/internal/config"
	"modguard/internal/database/boltstore"
	"modguard/internal/database/sqlitestore"
	"modguard/internal/email"
	"modguard/internal/handlers"
	"modguard/internal/metrics"
	"modguard/internal/moderation"
	"modguard/internal/ratelimit"
	"modguard/internal/routing"
	"modguard/internal/tracing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		// Production: JSON logs
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Development: pretty console logs
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting modguard moderation engine")

	cfg := config.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Publish the initial rule snapshot
	rules, err := buildRules(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.WordFile).Msg("Failed to load word list file")
	}
	ruleSet := moderation.NewRuleSet(rules)
	publishEnabledGauge(cfg.ModerationEnabled)

	// Open the report store
	reportStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer closeStore()
	log.Info().Str("driver", cfg.DBDriver).Str("path", cfg.DBPath).Msg("Database opened")

	// Rate-limit counter backend: Redis when configured, in-process otherwise
	var counterStore ratelimit.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to redis")
		}
		defer client.Close()
		counterStore = ratelimit.NewRedisStore(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Rate limiter using redis counters")
	} else {
		memStore := ratelimit.NewMemoryStore(5 * time.Minute)
		defer memStore.Stop()
		counterStore = memStore
		log.Info().Msg("Rate limiter using in-process counters")
	}
	limiter := ratelimit.New(counterStore, ratelimit.Limits{
		PerUserHour: cfg.ReportsMaxPerHour,
		PerUserDay:  cfg.ReportsMaxPerDay,
		PerIPHour:   cfg.ReportsIPMaxPerHour,
	})

	// Alert channel: NATS preferred, then webhook, then email
	var alerts moderation.AlertSender
	switch {
	case cfg.AlertNATSURL != "":
		notifier, err := alert.NewNATSNotifier(cfg.AlertNATSURL)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.AlertNATSURL).Msg("Failed to connect to NATS")
		}
		defer notifier.Close()
		alerts = notifier
	case cfg.AlertWebhookURL != "":
		alerts = alert.NewWebhookNotifier(cfg.AlertWebhookURL)
		log.Info().Msg("Alert channel: webhook")
	case cfg.SMTPHost != "" && cfg.AlertEmail != "":
		sender := email.NewSender(email.Config{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			User:       cfg.SMTPUser,
			Pass:       cfg.SMTPPass,
			From:       cfg.SMTPFrom,
			AdminEmail: cfg.AlertEmail,
		})
		alerts = alert.NewEmailNotifier(sender)
		log.Info().Str("to", cfg.AlertEmail).Msg("Alert channel: email")
	default:
		log.Info().Msg("Alert channel not configured")
	}

	// Tracing
	if cfg.TracingEnabled {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Tracer provider shutdown failed")
			}
		}()
		log.Info().Msg("Tracing initialized")
	}

	engine := moderation.NewEngine(ruleSet)
	service := moderation.NewService(engine, reportStore, alerts)

	h := handlers.NewHandler(service, reportStore, limiter, handlers.Config{
		ReportsEnabled: cfg.ReportsEnabled,
	})

	handler := routing.SetupRouter(routing.Config{
		Handlers:       h,
		Logger:         log.Logger,
		TracingEnabled: cfg.TracingEnabled,
	})

	// SIGHUP republishes a fresh rule snapshot from the environment
	go reloadOnSIGHUP(ctx, ruleSet)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

// openStore opens the configured report store backend.
func openStore(cfg config.Config) (moderation.Store, func(), error) {
	switch cfg.DBDriver {
	case "sqlite":
		store, err := sqlitestore.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return store.ReportStore(), func() { store.Close() }, nil
	default:
		store, err := boltstore.Open(boltstore.Options{Path: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		return store.ReportStore(), func() { store.Close() }, nil
	}
}

// reloadOnSIGHUP re-reads the environment and atomically swaps in a new
// rule snapshot. In-flight requests keep the snapshot they already hold.
func reloadOnSIGHUP(ctx context.Context, ruleSet *moderation.RuleSet) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			cfg := config.Parse()
			rules, err := buildRules(cfg)
			if err != nil {
				// Keep serving on the current snapshot.
				log.Error().Err(err).Str("file", cfg.WordFile).Msg("Rule reload failed, keeping current rules")
				continue
			}
			ruleSet.Replace(rules)
			publishEnabledGauge(cfg.ModerationEnabled)
			log.Info().Msg("Rules reloaded on SIGHUP")
		}
	}
}

// buildRules turns the parsed configuration into a rule snapshot,
// merging in the word-list file when one is configured. A file error is
// returned to the caller: startup treats it as fatal, the SIGHUP reload
// keeps the current snapshot.
func buildRules(cfg config.Config) (*moderation.Rules, error) {
	opts := cfg.RuleOptions()
	if cfg.WordFile != "" {
		words, err := loadWordList(cfg.WordFile)
		if err != nil {
			return nil, err
		}
		log.Info().
			Int("count", len(words)).
			Str("file", cfg.WordFile).
			Msg("Loaded word list from file")
		opts.ExtraWords = append(opts.ExtraWords, words...)
	}
	return moderation.NewRules(opts), nil
}

// loadWordList reads one word per line, skipping blank lines, comments,
// and anything containing whitespace.
func loadWordList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			log.Warn().Str("line", line).Msg("Skipping invalid word list entry")
			continue
		}
		words = append(words, strings.ToLower(line))
	}
	return words, nil
}

func publishEnabledGauge(enabled bool) {
	if enabled {
		metrics.EngineEnabled.Set(1)
	} else {
		metrics.EngineEnabled.Set(0)
	}
}
