package main

import (
	"context"
	"fmt"
	"log"

	"github.com/iousworks/eConnect/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	users := core.NewPgDirectory(db)
	gate := core.NewAuthGate([]byte(cfg.TokenSecret), cfg.TokenTTL, users)
	authService := core.NewAuthService(users, gate, cfg.BcryptCost)
	stats := core.NewStatsService(users, redisClient)

	if err := core.BootstrapAdmin(ctx, users, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}
	if err := core.SeedUsers(ctx, users, cfg); err != nil {
		log.Fatalf("seed users failed: %v", err)
	}

	router := core.NewRouter(cfg, gate, authService, users, stats, redisClient)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
