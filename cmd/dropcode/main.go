package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dropcode/dropcode/internal/app"
	"github.com/dropcode/dropcode/pkg/log"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatal("Failed to initialize application", err)
	}
	defer log.Sync()

	application.Start()
	defer application.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Fatal("Server shutdown error", err)
	}

	log.Info("Server shutdown complete")
}
