// Package main provides the entry point for the SIFT report builder server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/config"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/provider"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/server"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/storage"
)

var (
	port      = flag.Int("port", 8613, "Server port")
	directory = flag.String("directory", "", "Working directory")
	debug     = flag.Bool("debug", false, "Enable debug logging")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("sift-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logCfg := logging.DefaultConfig()
	if *debug {
		logCfg.Level = logging.ParseLevel("debug")
	}
	logCfg.Pretty = true
	logging.Init(logCfg)

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to get working directory")
		}
	}

	logging.Info().Str("version", Version).Str("directory", workDir).Msg("starting sift-server")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		logging.Fatal().Err(err).Msg("failed to create data directories")
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if appConfig.DataDir == "" {
		appConfig.DataDir = paths.StoragePath()
	}

	store := storage.New(appConfig.DataDir)

	ctx := context.Background()
	registry := provider.InitializeProviders(ctx, appConfig)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = *port

	srv := server.New(serverConfig, appConfig, store, registry)

	go func() {
		logging.Info().Int("port", *port).Msgf("server listening on http://localhost:%d", *port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
}
