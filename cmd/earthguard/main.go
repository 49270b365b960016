package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/earthguard/internal/api"
	"github.com/mr1hm/earthguard/internal/config"
	internalgrpc "github.com/mr1hm/earthguard/internal/grpc"
	"github.com/mr1hm/earthguard/internal/ingestion"
	"github.com/mr1hm/earthguard/internal/logging"
	"github.com/mr1hm/earthguard/internal/notifier"
	"github.com/mr1hm/earthguard/internal/observability"
	"github.com/mr1hm/earthguard/internal/relay"
	"github.com/mr1hm/earthguard/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logger := logging.Setup(cfg.Logging.Level)

	logger.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	registry := notifier.NewRegistry()
	prometheus.MustRegister(observability.NewClientsGauge(registry.Len))
	events := notifier.New(registry, metrics, logger)

	var opts []ingestion.Option
	var rel *relay.Relay
	// The relay gets its own context so queued reports can still be
	// published while it drains on shutdown.
	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	if cfg.Kafka.Enabled {
		pub := relay.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		rel = relay.New(pub, cfg.Worker.Count, cfg.Worker.BufferSize, clockwork.NewRealClock(), metrics, logger)
		rel.Start(relayCtx)
		opts = append(opts, ingestion.WithRelay(rel))
		logger.Info("kafka relay enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	svc := ingestion.NewService(db, events, metrics, logger, opts...)

	mgr := ingestion.NewManager(cfg, db, svc, metrics, logger)
	mgr.Start(ctx)

	var grpcServer *internalgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = internalgrpc.NewServer(registry, events, metrics, logger, cfg.Notify.ClientBufferSize)
		go func() {
			grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
			if err := grpcServer.Start(grpcAddr); err != nil {
				logging.Fatalf("gRPC server error: %v", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS, api.ProbePaths...))

	handler := api.NewHandler(api.Deps{
		Reporter:         svc,
		Reader:           db,
		Registry:         registry,
		Notifier:         events,
		Metrics:          metrics,
		Logger:           logger,
		ClientBufferSize: cfg.Notify.ClientBufferSize,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	cancel()
	mgr.Stop()
	// Closing the registry ends every SSE and gRPC event stream.
	registry.Close()
	if grpcServer != nil {
		grpcServer.Stop(cfg.Server.ShutdownTimeout)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if rel != nil {
		if err := rel.Stop(); err != nil {
			slog.Error("relay shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
}
