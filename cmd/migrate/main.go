package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/digikart/digikart-backend/pkg/config"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/migrate"
)

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "directory holding goose migration files")
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "digikart-migrate"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, "no .env file loaded, relying on process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "loading configuration", err)
		os.Exit(1)
	}

	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		logg.Error(ctx, "opening database", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		logg.Error(ctx, "pinging database", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{"command": command, "dir": *dir})
	logg.Info(ctx, "running goose")

	if err := migrate.Run(ctx, sqlDB, *dir, command, args...); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}
