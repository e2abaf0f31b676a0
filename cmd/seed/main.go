package main

import (
	"log"
	"log/slog"

	"chat-relay-service/internal/accounts"
	"chat-relay-service/internal/auth"
	"chat-relay-service/internal/config"
	"chat-relay-service/internal/database"
	"chat-relay-service/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Seeds demo accounts and prints a ready-to-use access token for each, for
// exercising the authenticated relay path by hand.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewMySQLConnection(
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	accountRepo := accounts.NewRepository(db)

	demoAccounts := []struct {
		username string
		email    string
		password string
	}{
		{"admin", "admin@relay.local", "123456"},
		{"alice", "alice@relay.local", "123456"},
		{"bob", "bob@relay.local", "123456"},
		{"charlie", "charlie@relay.local", "123456"},
	}

	for _, data := range demoAccounts {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(data.password), bcrypt.DefaultCost)
		account := &models.Account{
			Username: data.username,
			Email:    data.email,
			Password: string(hashedPassword),
		}

		if err := accountRepo.Create(account); err != nil {
			slog.Warn("Account might already exist", "username", data.username, "error", err)
			continue
		}
		slog.Info("Created account", "username", data.username, "id", account.ID)

		token, err := auth.IssueAccessToken(cfg.JWT.Secret, account.Email, cfg.JWT.ExpirationTime)
		if err != nil {
			slog.Warn("Failed to issue access token", "username", data.username, "error", err)
			continue
		}
		slog.Info("Access token", "username", data.username, "token", token)
	}

	slog.Info("Database seeding completed")
}
