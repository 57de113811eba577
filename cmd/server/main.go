// Command server wires the moderation console: the HTTP API, the submission
// ingest consumer, and the stores and external clients behind them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	accountshandler "backoffice/internal/accounts/handler"
	accountsservice "backoffice/internal/accounts/service"
	accountsstore "backoffice/internal/accounts/store"
	"backoffice/internal/audit"
	"backoffice/internal/content"
	"backoffice/internal/ingest"
	moderationhandler "backoffice/internal/moderation/handler"
	moderationmetrics "backoffice/internal/moderation/metrics"
	moderationservice "backoffice/internal/moderation/service"
	moderationstore "backoffice/internal/moderation/store"
	"backoffice/internal/notify"
	"backoffice/internal/platform/config"
	"backoffice/internal/platform/httpserver"
	"backoffice/internal/platform/kafka"
	"backoffice/internal/platform/logger"
	"backoffice/internal/platform/postgres"
	platformredis "backoffice/internal/platform/redis"
	"backoffice/internal/recsync"
	httptransport "backoffice/internal/transport/http"
	weightshandler "backoffice/internal/weights/handler"
	weightsmetrics "backoffice/internal/weights/metrics"
	weightsservice "backoffice/internal/weights/service"
	weightsstore "backoffice/internal/weights/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.ApplySchema(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	// Stores.
	itemStore := moderationstore.NewPostgres(db)
	weightStore := weightsstore.NewPostgres(db)
	accountStore := accountsstore.NewPostgres(db)
	auditStore := audit.NewPostgres(db)

	var contentStore content.Store = content.NewPostgres(db)
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		contentStore = content.NewExistsCache(contentStore, redisClient, log)
	}

	// External clients and side-effect services.
	syncer := recsync.New(cfg.Recommend, log)
	notifier := notify.New(cfg.Notify, log)
	auditor := audit.NewRecorder(auditStore, log)

	var producer *kafka.Producer
	var publisher moderationservice.ApprovedPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Error("kafka producer setup failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = ingest.NewApprovedPublisher(producer, cfg.Kafka.ApprovedTopic)
	}

	// Domain services.
	moderationSvc := moderationservice.New(
		itemStore, contentStore, notifier, publisher, auditor, moderationmetrics.New(), log)
	weightsSvc := weightsservice.New(
		weightStore, contentStore, syncer, auditor, weightsmetrics.New(), log)
	accountsSvc := accountsservice.New(accountStore, notifier, auditor, log)

	router := httptransport.NewRouter(log,
		moderationhandler.New(moderationSvc, log),
		weightshandler.New(weightsSvc, log),
		accountshandler.New(accountsSvc, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("http server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafka.NewConsumer(
			cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup,
			[]string{cfg.Kafka.SubmissionTopic}, log)
		if err != nil {
			log.Error("kafka consumer setup failed", "error", err)
			os.Exit(1)
		}

		handler := ingest.NewSubmissionHandler(itemStore, log)
		group.Go(func() error {
			log.Info("ingest consumer starting",
				"topic", cfg.Kafka.SubmissionTopic,
				"group", cfg.Kafka.ConsumerGroup,
			)
			defer consumer.Close()
			if err := consumer.Run(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
