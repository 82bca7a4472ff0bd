package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"exoplanet-api/internal/api"
	"exoplanet-api/internal/cfg"
	"exoplanet-api/internal/metrics"
	"exoplanet-api/internal/ml"
	"exoplanet-api/internal/schema"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	envFile, err := cfg.LoadDotEnv()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load .env, using process environment")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)
	if envFile != "" {
		log.Info().Str("file", envFile).Msg("loaded environment file")
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	cache := ml.NewCache(c.ModelDir, ml.NewLoader(ml.LoadOptions{PythonPath: c.PythonPath}), mw)
	adapter := ml.NewAdapter(cache, c.DefaultThreshold, mw)
	handler := api.NewHandler(adapter, schema.Exoplanet, schema.Options{KeepRejected: c.LenientValidation}, mw)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigin: c.CORSOrigin,
		Gatherer:   prometheus.DefaultGatherer,
		Metrics:    mw,
	})
	server := api.NewServer(c.Addr(), router)

	log.Info().
		Str("model_dir", c.ModelDir).
		Float64("default_threshold", c.DefaultThreshold).
		Bool("lenient_validation", c.LenientValidation).
		Msg("prediction service configured")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	runErr := waitForShutdown(errCh)

	ctx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server")
	}
	cancel()
	cache.Reset()

	if runErr != nil {
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// setupLogging configures the global logger from settings
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// waitForShutdown blocks until a signal arrives or the server stops on its own.
func waitForShutdown(errCh <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	}

	log.Info().Msg("shutting down gracefully...")
	return nil
}
