// Package main applies the portal schema to a Postgres database, for
// deployments using the postgres storage backend or a self-hosted Supabase.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/video_portal/internal/app/storage/postgres"
	"github.com/R3E-Network/video_portal/internal/platform/migrations"
)

func main() {
	var (
		envFile   = flag.String("env", ".env", "Path to a .env file providing DATABASE_URL")
		dsn       = flag.String("dsn", "", "Postgres connection string (overrides DATABASE_URL)")
		untracked = flag.Bool("untracked", false, "Run every up script without recording a schema version")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load env (%s): %v", *envFile, err)
	}
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *dsn == "" {
		log.Fatal("DATABASE_URL missing: pass -dsn or set it in the environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if *untracked {
		err = migrations.Apply(ctx, db)
	} else {
		err = migrations.Up(db)
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("schema is up to date")
}
