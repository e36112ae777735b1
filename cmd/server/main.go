package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treedeco/internal/api"
	"treedeco/internal/config"
	"treedeco/internal/db"
	"treedeco/internal/presence"
	"treedeco/internal/redis"
	"treedeco/internal/services/collaboration"
	"treedeco/internal/store"
	"treedeco/internal/telemetry"
)

func main() {
	log.Println("🎄 Starting tree decoration server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Tracing first so everything after it is traced.
	jaegerShutdown, err := telemetry.InitJaeger("treedeco", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	var sessionStore store.Store
	switch cfg.StoreBackend {
	case config.BackendRedis:
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		// Redis expires session keys natively; no sweeper needed.
		sessionStore = store.NewRedisStore(redisClient.Client, cfg.SessionTTL)

	case config.BackendPostgres:
		database, err := db.NewGorm(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer database.Close()

		pgStore := store.NewPostgresStore(database.DB, cfg.SessionTTL)
		pgStore.StartSweeper(sweepCtx, cfg.SweepInterval)
		sessionStore = pgStore
	}

	registry := presence.NewRegistry()
	hub := collaboration.NewHub()
	router := collaboration.NewRouter(sessionStore, registry, hub)
	wsHandler := collaboration.NewWebSocketHandler(hub, router, cfg.AllowedOrigin)

	handler := api.NewHandler(sessionStore, wsHandler)
	routes := api.SetupRoutes(handler, cfg.AllowedOrigin)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      routes,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   POST   /api/session/create      - Create decoration session")
		log.Printf("   GET    /api/session/:sessionId  - Get session details")
		log.Printf("   GET    /api/health              - Health check")
		log.Printf("   WS     /ws                      - Realtime collaboration")
		log.Println("🎅 WebSocket ready for connections")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	stopSweep()
	hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}
