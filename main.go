package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tagdex/internal/api"
	"tagdex/internal/config"
	"tagdex/internal/database"
	"tagdex/internal/events"
	"tagdex/internal/fsys"
	"tagdex/internal/media"
	"tagdex/internal/metadata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx := context.Background()

	store, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()

	bus := events.NewBus()
	thumbs := media.NewGenerator(cfg.ThumbnailsEnabled)
	lister := fsys.NewOS()

	svc, err := metadata.New(ctx, store, lister, thumbs, bus, cfg.ThumbnailDir)
	if err != nil {
		log.Fatalf("failed to initialize metadata service: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.New(svc, cfg.MetricsEnabled).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the event stream stays open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv)

	log.Infof("listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func handleShutdown(srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Infof("shutdown initiated by %s", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("server shutdown error: %v", err)
	}
}
