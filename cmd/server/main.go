package main

import (
	"log"

	"PriceScout/internal/cache"
	"PriceScout/internal/database"
	"PriceScout/internal/server"
	"PriceScout/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	repo, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	log.Println("Starting scan progress API server...")
	server.Start(repo, cache.New(cfg.CacheTTL()), cfg.Server.Port)
}
