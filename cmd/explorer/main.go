package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "stellar-wallet-network-explorer/internal/application/service"
	"stellar-wallet-network-explorer/internal/domain/repository"
	"stellar-wallet-network-explorer/internal/infrastructure/api"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/database"
	"stellar-wallet-network-explorer/internal/infrastructure/horizon"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"
	"stellar-wallet-network-explorer/internal/infrastructure/messaging"

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
		fx.Supply(&cfg.Horizon),
		fx.Supply(&cfg.Explorer),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			horizon.NewClient,
			database.NewNeo4JClient,
			messaging.NewNATSPublisher,
			newSnapshotRepository,
			api.NewHandler,
		),

		// Application providers
		fx.Provide(
			app_service.NewNetworkExplorerService,
		),

		// Lifecycle hooks
		fx.Invoke(startCollaborators),
		fx.Invoke(startHTTPServer),

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

	// Stop the application
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// newSnapshotRepository provides the graph store when persistence is
// enabled; builds still work without it
func newSnapshotRepository(
	cfg *config.Config,
	client *database.Neo4JClient,
	log *logger.Logger,
) repository.SnapshotRepository {
	if !cfg.Neo4J.Enabled {
		return nil
	}
	return database.NewNeo4JSnapshotRepository(client, log)
}

// startCollaborators connects the optional external collaborators
func startCollaborators(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	neo4jClient *database.Neo4JClient,
	publisher *messaging.NATSPublisher,
	log *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Neo4J.Enabled {
				log.Info("Connecting to Neo4J database")
				if err := neo4jClient.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
				log.Info("Successfully connected to Neo4J database")
			}

			if err := publisher.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Close(ctx); err != nil {
					log.Error("Failed to close Neo4J connection", zap.Error(err))
				}
			}
			return publisher.Disconnect()
		},
	})
}

// startHTTPServer starts the API server
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	handler *api.Handler,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: handler.Router(),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server", zap.Int("port", cfg.App.HTTPPort))

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("API server error", zap.Error(err))
				}
			}()

			log.Info("API server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping API server...")
			return server.Shutdown(ctx)
		},
	})
}
