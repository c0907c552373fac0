package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pevans/udnfetch/api"
	"github.com/pevans/udnfetch/config"
	"github.com/pevans/udnfetch/logger"
	"github.com/pevans/udnfetch/runs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfgFile := flag.String("config", "", "config file (default is ~/.udnfetch/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides api.addr)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Default.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.Environment)
	log := logger.For("udnfetch-api")

	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := runs.NewStore(cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", cfg.Storage.DSN).Msg("Failed to open run archive")
	}
	defer store.Close()

	server := api.NewServer(store, logger.Default)
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.API.Addr).Msg("Starting archive API on http://" + cfg.API.Addr + "/api/v1/runs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
