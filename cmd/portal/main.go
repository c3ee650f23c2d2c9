// Package main runs the video portal API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/video_portal/internal/app/runtime"
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (defaults to ENV_FILE or ./.env)")
	flag.Parse()

	if *envFile != "" {
		os.Setenv("ENV_FILE", *envFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := runtime.NewApplication(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise portal: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down portal...")
	if err := app.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
