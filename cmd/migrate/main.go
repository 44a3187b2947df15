package main

import (
	"fmt"
	"os"

	"github.com/cassiomorais/payhub/internal/infrastructure/config"
	"github.com/cassiomorais/payhub/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(cfg.Database.DatabaseDSN()); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("migrations applied")
}
