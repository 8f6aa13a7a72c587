// @title           Todo API
// @version         1.0
// @description     Single-user todo list with optional email notifications.
// @BasePath        /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/joho/godotenv/autoload"

	_ "github.com/areyabhishek/todo1/docs"
	"github.com/areyabhishek/todo1/internal/app"
	"github.com/areyabhishek/todo1/internal/config"
)

func main() {
	bootLog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log, err := app.NewLogger(cfg.App.Env)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to init logger")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("config loaded")

	application, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init app")
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("http server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := application.Close(ctx); err != nil {
		log.Error().Err(err).Msg("app close failed")
	}
	log.Info().Msg("stopped")
}
