package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/events"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/handler"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/service"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/auth"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/database"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/messaging"
	"github.com/tddproof/tddproof-backend/pkg/metrics"
)

const serviceName = "tdd-service"

func main() {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().
		Str("trust_store", cfg.TwoDDoc.TrustStore).
		Str("matcher_profile", cfg.TwoDDoc.MatcherProfile).
		Msg("starting 2D-DOC service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := map[string]handler.HealthCheck{}

	// The database only backs the trust-anchor table
	var db *database.DB
	if cfg.TwoDDoc.TrustStore == config.TrustStorePostgres {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := verifier.NewPostgresKeyStore(db).Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate trust anchors")
		}
		health["database"] = db.Health
	}

	resolver, err := verifier.ResolverFromConfig(cfg.TwoDDoc, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build key resolver")
	}

	p := parser.New(verifier.New(resolver, log), log)
	builder := circuit.NewBuilder(p, circuit.ConfigFrom(cfg.TwoDDoc))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var publisher *events.Publisher
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, serviceName, messaging.TwoDDocTopology(serviceName, events.ParseRequests), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewPublisher(rmq, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		health["rabbitmq"] = func(context.Context) map[string]string { return rmq.Health() }
	}

	svc := service.New(p, builder, publisher, m, log)

	if rmq != nil {
		consumer, err := events.NewParseRequestConsumer(rmq, svc, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create parse request consumer")
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start parse request consumer")
		}
	}

	var tokens *auth.Manager
	if cfg.JWT.Enabled {
		tokens = auth.NewManager(&cfg.JWT)
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    serviceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Documents:      handler.NewDocumentHandler(svc, log),
		Catalog:        handler.NewCatalogHandler(),
		Tokens:         tokens,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Health:         health,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
