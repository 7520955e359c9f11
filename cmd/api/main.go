// cmd/api/main.go
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/infrastructure/database/memory"
	"github.com/your-org/coating-shop/internal/infrastructure/database/postgres"
	"github.com/your-org/coating-shop/internal/infrastructure/database/redis"
	"github.com/your-org/coating-shop/internal/interfaces/http"
	"github.com/your-org/coating-shop/internal/interfaces/http/routes"
	"github.com/your-org/coating-shop/internal/pkg/logger"
	"github.com/your-org/coating-shop/internal/pkg/telemetry"
)

// store is what the services need from a storage backend
type store interface {
	order.Store
	inventory.Transactor
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	checks := map[string]http.HealthChecker{}
	var closers []io.Closer

	// Storage backend
	var st store
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("⚠️ Using in-memory storage, data is lost on restart")
		st = memory.NewStore()
	default:
		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		closers = append(closers, db)
		checks["database"] = db

		if err := db.Health(context.Background()); err != nil {
			log.Fatalf("Database health check failed: %v", err)
		}

		if cfg.Database.AutoMigrate {
			migration := postgres.NewMigration(db.GetDB(), log)
			if err := migration.RunAutoMigrations(); err != nil {
				log.Fatalf("Database migration failed: %v", err)
			}
			if err := migration.CreateIndexes(); err != nil {
				log.Warnf("Index creation failed: %v", err)
			}

			// Seed initial data in development
			if cfg.IsDevelopment() {
				if err := migration.SeedInitialData(cfg.Fulfillment.DefaultItemUnit, cfg.DefaultItemMinimum()); err != nil {
					log.Warnf("Data seeding failed: %v", err)
				}
			}
		}

		st = postgres.NewStore(db.GetDB())
	}

	// Redis backs rate limiting only
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewConnection(cfg, log)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		closers = append(closers, redisClient)
		checks["redis"] = redisClient
	}

	// Domain services
	ledger := inventory.NewLedger(log)
	trail := audit.NewTrail(log)
	services := routes.Services{
		Orders:      order.NewService(st, trail, cfg, log),
		Fulfillment: order.NewFulfillment(st, ledger, trail, cfg, log),
		Inventory:   inventory.NewService(st.Inventory(), st, ledger, cfg, log),
	}

	log.Info("✅ All systems operational!")

	server := http.NewServer(cfg, log, services, redisClient, checks)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("👋 Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Errorf("Failed to flush traces: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Errorf("Failed to close connection: %v", err)
		}
	}

	log.Info("✅ Server shutdown completed")
}
