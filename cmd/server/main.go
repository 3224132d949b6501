// Command server runs the personnel records API: classification catalog,
// agent lifecycle, role provisioning, and the audit relay. main wires
// dependencies and the process lifecycle; business logic lives in the
// internal services.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/twmb/franz-go/pkg/kgo"

	"sigrh/internal/agent"
	agenthandler "sigrh/internal/agent/handler"
	agentmetrics "sigrh/internal/agent/metrics"
	agentservice "sigrh/internal/agent/service"
	"sigrh/internal/audit"
	"sigrh/internal/audit/relay"
	"sigrh/internal/catalog"
	catalogcache "sigrh/internal/catalog/cache"
	cataloghandler "sigrh/internal/catalog/handler"
	"sigrh/internal/classification"
	"sigrh/internal/platform/config"
	"sigrh/internal/platform/httpserver"
	"sigrh/internal/platform/logger"
	"sigrh/internal/platform/middleware"
	redisplatform "sigrh/internal/platform/redis"
	"sigrh/internal/provisioning"
	provhandler "sigrh/internal/provisioning/handler"
	provmetrics "sigrh/internal/provisioning/metrics"
	provservice "sigrh/internal/provisioning/service"
	httptransport "sigrh/internal/transport/http"
	"sigrh/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("ping postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Catalog: the validator reads the authoritative store; the HTTP read
	// paths go through the redis decorator when one is configured.
	catalogStore := catalog.NewPostgres(db)
	var catalogReads catalog.Store = catalogStore
	if redisClient != nil {
		catalogReads = catalogcache.New(catalogStore, redisClient.Client, cfg.CatalogTTL, log)
	}
	validator := classification.New(catalogStore)

	auditStore := audit.NewPostgres(db)
	publisher := audit.NewPublisher(auditStore)
	txRunner := tx.NewSQLRunner(db)

	agentStore := agent.NewPostgres(db)
	agentSvc := agentservice.New(agentStore, validator, publisher,
		agentservice.WithLogger(log),
		agentservice.WithMetrics(agentmetrics.New()),
		agentservice.WithTxRunner(txRunner),
	)

	profileStore := provisioning.NewPostgresProfiles(db)
	lockStore := provisioning.NewPostgresLocks(db)
	provSvc := provservice.New(profileStore, lockStore, agentStore, publisher,
		provservice.WithLogger(log),
		provservice.WithMetrics(provmetrics.New()),
		provservice.WithTxRunner(txRunner),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		JWTValidator: middleware.NewHMACValidator(cfg.JWTSigningKey),
		Catalog:      cataloghandler.New(catalogReads, log),
		Agents:       agenthandler.New(agentSvc, log),
		Provisioning: provhandler.New(provSvc, log),
		Health:       db.Ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The audit relay drains the outbox to Kafka when brokers are
	// configured; without them the trail stays queryable in postgres.
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.AllowAutoTopicCreation(),
		)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		auditRelay := relay.New(auditStore, kafkaClient, cfg.AuditTopic, log)
		if err := auditRelay.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic bootstrap failed, relying on broker auto-create", "error", err)
		}
		go func() {
			if err := auditRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
