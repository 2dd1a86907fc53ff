// Command migrate applies or rolls back the SQL schema in DB_MIGRATIONS_DIR.
//
//	migrate up
//	migrate down [n]
//	migrate status
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-insight/internal/infrastructure/database"
	"github.com/johnquangdev/call-insight/pkg/config"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down [n] | status")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("migrate requires DB_DRIVER=postgres (got %q)", cfg.Database.Driver)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("database.connect_failed", zap.Error(err))
	}
	defer database.CloseDB(db)

	dir := cfg.Database.MigrationsDir
	switch os.Args[1] {
	case "up":
		n, err := database.Migrate(db, dir, database.Up, 0)
		if err != nil {
			logger.Fatal("migrate.up_failed", zap.Error(err))
		}
		logger.Info("migrate.up", zap.String("dir", dir), zap.Int("applied", n))
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps < 1 {
				usage()
			}
		}
		n, err := database.Migrate(db, dir, database.Down, steps)
		if err != nil {
			logger.Fatal("migrate.down_failed", zap.Error(err))
		}
		logger.Info("migrate.down", zap.String("dir", dir), zap.Int("rolled_back", n))
	case "status":
		rows, err := database.Status(db, dir)
		if err != nil {
			logger.Fatal("migrate.status_failed", zap.Error(err))
		}
		for _, r := range rows {
			applied := "pending"
			if r.AppliedAt != nil {
				applied = r.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-40s %s\n", r.ID, applied)
		}
	default:
		usage()
	}
}
