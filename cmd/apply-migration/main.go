package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/database"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.RunMigrations(cfg.Database.GetDSN(), *direction); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Printf("Migrations applied (%s) on %s:%d/%s\n", *direction, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
}
