package main

// @title           Chat Relay Service API
// @version         1.0
// @description     Real-time message relay: rooms, presence notices, fan-out.
// @host            localhost:8080
// @BasePath        /

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay-service/internal/accounts"
	"chat-relay-service/internal/api/routes"
	"chat-relay-service/internal/audit"
	"chat-relay-service/internal/auth"
	"chat-relay-service/internal/config"
	"chat-relay-service/internal/database"
	"chat-relay-service/internal/relay"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting chat relay server")

	db, err := database.NewMySQLConnection(
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)
	if err != nil {
		slog.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}

	accountRepo := accounts.NewRepository(db)
	verifier := auth.NewVerifier(cfg.JWT.Secret)
	authService := auth.NewService(accountRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	// Event firehose is optional; the relay runs standalone without brokers
	var publisher relay.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to connect Kafka publisher", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	registry := relay.NewRegistry()
	hub := relay.NewHub(registry, publisher)
	go hub.Run()

	router := routes.NewRouter(hub, registry, verifier, accountRepo, authService, cfg.Server.AllowedOrigins)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
