package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "holder-risk-engine/internal/application/service"
	"holder-risk-engine/internal/domain/repository"
	domain_service "holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/cache"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/database"
	"holder-risk-engine/internal/infrastructure/faster100x"
	"holder-risk-engine/internal/infrastructure/logger"
	"holder-risk-engine/internal/infrastructure/messaging"
	"holder-risk-engine/internal/infrastructure/metrics"
	"holder-risk-engine/internal/interfaces/http/rest"
	"holder-risk-engine/internal/interfaces/http/rest/handlers"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Redis),
		fx.Supply(&cfg.Faster100x),
		fx.Supply(&cfg.Metrics),

		// Infrastructure providers
		fx.Provide(
			database.NewNeo4JClient,
			cache.NewRedisSnapshotCache,
			metrics.NewCollector,
			messaging.NewNATSConsumer,
			messaging.NewNATSPublisher,
			func(cfg *config.Faster100xConfig, log *logger.Logger) domain_service.HolderDataFetcher {
				return faster100x.NewClient(cfg, log)
			},
			func(cfg *config.Config, client *database.Neo4JClient, log *logger.Logger) repository.HolderRiskRepository {
				if !cfg.Neo4J.Enabled {
					return nil
				}
				return database.NewNeo4JHolderRiskRepository(client, log)
			},
			func(cfg *config.Config, redisCache *cache.RedisSnapshotCache) repository.SnapshotCache {
				if !cfg.Redis.Enabled {
					return nil
				}
				return redisCache
			},
		),

		// Application providers
		fx.Provide(
			app_service.NewHolderRiskAppService,
			func(svc domain_service.HolderRiskService, publisher *messaging.NATSPublisher, cfg *config.Config, log *logger.Logger) *app_service.AnalysisWorkerPool {
				return app_service.NewAnalysisWorkerPool(svc, publisher, cfg.App.WorkerPoolSize, cfg.App.RequestTimeout, log)
			},
		),

		// Interface providers
		fx.Provide(
			func(svc domain_service.HolderRiskService, cfg *config.Config, log *logger.Logger) *handlers.HolderRiskHandler {
				return handlers.NewHolderRiskHandler(svc, cfg.App.RequestTimeout, log)
			},
			func(
				svcHandler *handlers.HolderRiskHandler,
				collector *metrics.Collector,
				cfg *config.Config,
				neo4jClient *database.Neo4JClient,
				redisCache *cache.RedisSnapshotCache,
				consumer *messaging.NATSConsumer,
				log *logger.Logger,
			) *rest.Router {
				router := rest.NewRouter(svcHandler, collector, cfg.Health.Timeout, log)
				if cfg.Neo4J.Enabled {
					router.AddHealthCheck("neo4j", neo4jClient.IsConnected)
				}
				if cfg.Redis.Enabled {
					router.AddHealthCheck("redis", redisCache.IsConnected)
				}
				if cfg.NATS.Enabled {
					router.AddHealthCheck("nats", func(ctx context.Context) bool {
						return consumer.IsConnected()
					})
				}
				return router
			},
		),

		// Lifecycle hooks
		fx.Invoke(startStorage),
		fx.Invoke(startWorkers),
		fx.Invoke(startHTTPServer),
		fx.Invoke(startMetricsServer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// startStorage connects the optional report store and snapshot cache
func startStorage(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	neo4jClient *database.Neo4JClient,
	redisCache *cache.RedisSnapshotCache,
	log *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Neo4J.Enabled {
				log.Info("Connecting to Neo4J database")
				if err := neo4jClient.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
			} else {
				log.Info("Neo4J is disabled, reports will not be stored")
			}

			if cfg.Redis.Enabled {
				log.Info("Connecting to Redis snapshot cache", zap.String("addr", cfg.Redis.Addr))
				if err := redisCache.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Redis: %w", err)
				}
			} else {
				log.Info("Redis is disabled, snapshots will not be cached")
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Redis.Enabled {
				if err := redisCache.Close(); err != nil {
					log.Error("Failed to close Redis connection", zap.Error(err))
				}
			}
			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Close(ctx); err != nil {
					log.Error("Failed to close Neo4J connection", zap.Error(err))
				}
			}
			return nil
		},
	})
}

// startWorkers connects to NATS and runs the analysis worker pool
func startWorkers(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	consumer *messaging.NATSConsumer,
	pool *app_service.AnalysisWorkerPool,
	log *logger.Logger,
) {
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.NATS.Enabled {
				log.Info("NATS is disabled, analysis requests are served over HTTP only")
				close(done)
				return nil
			}

			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("request_subject", cfg.NATS.RequestSubject()),
				zap.String("report_subject", cfg.NATS.ReportSubject()),
			)

			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			go func() {
				defer close(done)
				pool.Run(workerCtx, consumer.GetJobChannel())
			}()

			log.Info("Analysis workers started", zap.Int("workers", cfg.App.WorkerPoolSize))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping analysis workers...")
			cancelWorkers()

			select {
			case <-done:
			case <-ctx.Done():
				log.Warn("Timed out waiting for analysis workers")
			}

			if !cfg.NATS.Enabled {
				return nil
			}
			return consumer.Disconnect()
		},
	})
}

// startHTTPServer starts the API server
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	router *rest.Router,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server...", zap.Int("port", cfg.App.HTTPPort))

			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// startMetricsServer exposes Prometheus metrics on their own port
func startMetricsServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	collector *metrics.Collector,
	log *logger.Logger,
) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting metrics server...", zap.Int("port", cfg.Metrics.Port))

			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Metrics server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
